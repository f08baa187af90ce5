package services

import "sync"

// BookLocks serializes circulation operations per book. Copy-count mutation
// and reservation-queue mutation for one book form a single logical
// resource; operations on different books proceed fully in parallel.
type BookLocks struct {
	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

// NewBookLocks creates an empty lock table.
func NewBookLocks() *BookLocks {
	return &BookLocks{locks: make(map[int32]*sync.Mutex)}
}

// Lock acquires the exclusive lock for a book and returns its release
// function. Lock scope is strictly the duration of one state transition.
func (b *BookLocks) Lock(bookID int32) func() {
	b.mu.Lock()
	l, ok := b.locks[bookID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[bookID] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}

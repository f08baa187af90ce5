package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/schoolhub/circulation/internal/models"
)

// memStore is an in-memory stand-in for the Postgres repository. It mirrors
// the repository contract exactly: guarded transitions report affected rows,
// missing records surface models.ErrNotFound, and closed-loan updates
// surface models.ErrConflict.
type memStore struct {
	mu           sync.Mutex
	books        map[int32]*models.Book
	loans        map[int32]*models.Loan
	fines        map[int32]*models.Fine
	reservations map[int32]*models.Reservation
	config       *models.NotificationConfig
	nextLoanID   int32
	nextFineID   int32
	nextResID    int32
}

func newMemStore() *memStore {
	return &memStore{
		books:        make(map[int32]*models.Book),
		loans:        make(map[int32]*models.Loan),
		fines:        make(map[int32]*models.Fine),
		reservations: make(map[int32]*models.Reservation),
	}
}

func (m *memStore) addBook(id int32, total, available int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[id] = &models.Book{
		ID:              id,
		ISBN:            "isbn-" + string(rune('0'+id)),
		Title:           "Book",
		Author:          "Author",
		TotalCopies:     total,
		AvailableCopies: available,
	}
}

func (m *memStore) availableCopies(bookID int32) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[bookID].AvailableCopies
}

func (m *memStore) openLoans(bookID int32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.loans {
		if l.BookID == bookID && l.ReturnDate == nil {
			n++
		}
	}
	return n
}

func (m *memStore) GetBook(ctx context.Context, id int32) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return models.Book{}, models.ErrNotFound
	}
	return *b, nil
}

func (m *memStore) DecrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.AvailableCopies <= 0 {
		return 0, nil
	}
	b.AvailableCopies--
	return 1, nil
}

func (m *memStore) IncrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return 0, nil
	}
	b.AvailableCopies++
	return 1, nil
}

func (m *memStore) CreateLoan(ctx context.Context, bookID, studentID int32, issueDate, dueDate time.Time) (models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLoanID++
	loan := &models.Loan{
		ID:        m.nextLoanID,
		BookID:    bookID,
		StudentID: studentID,
		IssueDate: issueDate,
		DueDate:   dueDate,
	}
	m.loans[loan.ID] = loan
	return *loan, nil
}

func (m *memStore) GetLoan(ctx context.Context, id int32) (models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return models.Loan{}, models.ErrNotFound
	}
	return *l, nil
}

func (m *memStore) CloseLoan(ctx context.Context, loanID int32, returnDate time.Time) (models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[loanID]
	if !ok || l.ReturnDate != nil {
		return models.Loan{}, models.ErrConflict
	}
	rd := returnDate
	l.ReturnDate = &rd
	return *l, nil
}

func (m *memStore) RenewLoan(ctx context.Context, loanID int32, newDueDate time.Time, history []models.RenewalRecord) (models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[loanID]
	if !ok || l.ReturnDate != nil {
		return models.Loan{}, models.ErrConflict
	}
	l.DueDate = newDueDate
	l.RenewalCount++
	l.RenewalHistory = history
	return *l, nil
}

func (m *memStore) CountOpenLoansByStudent(ctx context.Context, studentID int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, l := range m.loans {
		if l.StudentID == studentID && l.ReturnDate == nil {
			n++
		}
	}
	return n, nil
}

func (m *memStore) HasOpenLoan(ctx context.Context, bookID, studentID int32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loans {
		if l.BookID == bookID && l.StudentID == studentID && l.ReturnDate == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var loans []models.Loan
	for _, l := range m.loans {
		if l.ReturnDate == nil && l.DueDate.Before(asOf) {
			loans = append(loans, *l)
		}
	}
	return loans, nil
}

func (m *memStore) RecordReminder(ctx context.Context, loanID int32, sentAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[loanID]
	if !ok || l.ReturnDate != nil {
		return 0, nil
	}
	l.ReminderCount++
	at := sentAt
	l.LastReminderAt = &at
	return 1, nil
}

func (m *memStore) CreateFine(ctx context.Context, loanID int32, amount decimal.Decimal, overdueDays int32) (models.Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFineID++
	fine := &models.Fine{
		ID:          m.nextFineID,
		LoanID:      loanID,
		Amount:      amount,
		OverdueDays: overdueDays,
		Status:      models.FineStatusPending,
	}
	m.fines[fine.ID] = fine
	return *fine, nil
}

func (m *memStore) GetFine(ctx context.Context, id int32) (models.Fine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fines[id]
	if !ok {
		return models.Fine{}, models.ErrNotFound
	}
	return *f, nil
}

func (m *memStore) PayFine(ctx context.Context, id int32, paidAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fines[id]
	if !ok || f.Status != models.FineStatusPending {
		return 0, nil
	}
	f.Status = models.FineStatusPaid
	at := paidAt
	f.PaidAt = &at
	return 1, nil
}

func (m *memStore) WaiveFine(ctx context.Context, id int32, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fines[id]
	if !ok || f.Status != models.FineStatusPending {
		return 0, nil
	}
	f.Status = models.FineStatusWaived
	f.WaivedReason = &reason
	return 1, nil
}

func (m *memStore) CreateReservation(ctx context.Context, bookID, studentID, position int32, reservedAt, expiresAt time.Time) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextResID++
	res := &models.Reservation{
		ID:            m.nextResID,
		BookID:        bookID,
		StudentID:     studentID,
		QueuePosition: position,
		Status:        models.ReservationStatusActive,
		ReservedAt:    reservedAt,
		ExpiresAt:     expiresAt,
	}
	m.reservations[res.ID] = res
	return *res, nil
}

func (m *memStore) GetReservation(ctx context.Context, id int32) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return models.Reservation{}, models.ErrNotFound
	}
	return *r, nil
}

func (m *memStore) GetActiveReservation(ctx context.Context, bookID, studentID int32) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.BookID == bookID && r.StudentID == studentID && r.Status == models.ReservationStatusActive {
			return *r, nil
		}
	}
	return models.Reservation{}, models.ErrNotFound
}

func (m *memStore) GetQueueHead(ctx context.Context, bookID int32) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.BookID == bookID && r.Status == models.ReservationStatusActive && r.QueuePosition == 1 {
			return *r, nil
		}
	}
	return models.Reservation{}, models.ErrNotFound
}

func (m *memStore) CountActiveReservations(ctx context.Context, bookID int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.reservations {
		if r.BookID == bookID && r.Status == models.ReservationStatusActive {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListActiveReservationsByBook(ctx context.Context, bookID int32) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for pos := int32(1); ; pos++ {
		found := false
		for _, r := range m.reservations {
			if r.BookID == bookID && r.Status == models.ReservationStatusActive && r.QueuePosition == pos {
				out = append(out, *r)
				found = true
				break
			}
		}
		if !found {
			return out, nil
		}
	}
}

func (m *memStore) ListExpiredActiveReservations(ctx context.Context, asOf time.Time) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.Status == models.ReservationStatusActive && r.ExpiresAt.Before(asOf) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) TransitionReservation(ctx context.Context, id int32, to models.ReservationStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != models.ReservationStatusActive {
		return 0, nil
	}
	r.Status = to
	return 1, nil
}

func (m *memStore) MarkPromoted(ctx context.Context, id int32, expiresAt, notifiedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != models.ReservationStatusActive || r.CopyHeld {
		return 0, nil
	}
	r.CopyHeld = true
	r.ExpiresAt = expiresAt
	at := notifiedAt
	r.NotifiedAt = &at
	return 1, nil
}

func (m *memStore) RerankAfterRemoval(ctx context.Context, bookID, removedPosition int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.BookID == bookID && r.Status == models.ReservationStatusActive && r.QueuePosition > removedPosition {
			r.QueuePosition--
		}
	}
	return nil
}

func (m *memStore) GetNotificationConfig(ctx context.Context, defaults models.NotificationConfig) (models.NotificationConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return defaults, nil
	}
	return *m.config, nil
}

func (m *memStore) UpsertNotificationConfig(ctx context.Context, cfg models.NotificationConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
	return nil
}

// captureEnqueuer collects notices instead of delivering them.
type captureEnqueuer struct {
	mu      sync.Mutex
	notices []models.Notice
	fail    bool
}

func (c *captureEnqueuer) Enqueue(ctx context.Context, notice models.Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return context.DeadlineExceeded
	}
	c.notices = append(c.notices, notice)
	return nil
}

func (c *captureEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schoolhub/circulation/internal/models"
)

// ReservationQuerier defines the interface for reservation database operations
type ReservationQuerier interface {
	GetBook(ctx context.Context, id int32) (models.Book, error)
	CreateReservation(ctx context.Context, bookID, studentID, position int32, reservedAt, expiresAt time.Time) (models.Reservation, error)
	GetReservation(ctx context.Context, id int32) (models.Reservation, error)
	GetActiveReservation(ctx context.Context, bookID, studentID int32) (models.Reservation, error)
	GetQueueHead(ctx context.Context, bookID int32) (models.Reservation, error)
	CountActiveReservations(ctx context.Context, bookID int32) (int64, error)
	ListActiveReservationsByBook(ctx context.Context, bookID int32) ([]models.Reservation, error)
	ListExpiredActiveReservations(ctx context.Context, asOf time.Time) ([]models.Reservation, error)
	TransitionReservation(ctx context.Context, id int32, to models.ReservationStatus) (int64, error)
	MarkPromoted(ctx context.Context, id int32, expiresAt, notifiedAt time.Time) (int64, error)
	RerankAfterRemoval(ctx context.Context, bookID, removedPosition int32) error
}

// ReservationNotifier sends the "your reserved copy is ready" notice when a
// queue head is promoted.
type ReservationNotifier interface {
	NotifyReservationReady(ctx context.Context, res models.Reservation) error
}

// ReservationService maintains per-book FIFO waiting lists with
// expiry-based promotion. A freed copy goes to the head of the queue, who
// then has a bounded claim window to actually issue the book.
type ReservationService struct {
	querier     ReservationQuerier
	catalog     *CatalogService
	notifier    ReservationNotifier
	locks       *BookLocks
	claimWindow time.Duration
	queueTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewReservationService creates a new reservation service.
func NewReservationService(querier ReservationQuerier, catalog *CatalogService, notifier ReservationNotifier, locks *BookLocks, claimWindow, queueTTL time.Duration, logger *slog.Logger) *ReservationService {
	return &ReservationService{
		querier:     querier,
		catalog:     catalog,
		notifier:    notifier,
		locks:       locks,
		claimWindow: claimWindow,
		queueTTL:    queueTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Reserve places a student at the tail of a book's waiting list.
// Reservation only applies to fully-checked-out titles; an available book
// should be issued instead.
func (s *ReservationService) Reserve(ctx context.Context, bookID, studentID int32) (*models.ReservationResult, error) {
	unlock := s.locks.Lock(bookID)
	defer unlock()

	book, err := s.querier.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if _, err := s.querier.GetActiveReservation(ctx, bookID, studentID); err == nil {
		return nil, models.ErrAlreadyReserved
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if book.AvailableCopies > 0 {
		return nil, models.ErrBookAvailable
	}

	count, err := s.querier.CountActiveReservations(ctx, bookID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	position := int32(count) + 1
	res, err := s.querier.CreateReservation(ctx, bookID, studentID, position, now, now.Add(s.queueTTL))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation created",
		"reservation_id", res.ID,
		"book_id", bookID,
		"student_id", studentID,
		"queue_position", position)

	return &models.ReservationResult{ReservationID: res.ID, QueuePosition: position}, nil
}

// Cancel withdraws an active reservation and closes the gap it leaves in
// the queue. If the reservation was holding a claimed copy, the copy is
// released and the next student in line is promoted.
func (s *ReservationService) Cancel(ctx context.Context, reservationID int32) error {
	res, err := s.querier.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(res.BookID)
	defer unlock()

	rows, err := s.querier.TransitionReservation(ctx, reservationID, models.ReservationStatusCancelled)
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrConflict
	}

	if err := s.querier.RerankAfterRemoval(ctx, res.BookID, res.QueuePosition); err != nil {
		return err
	}

	s.logger.Info("Reservation cancelled", "reservation_id", reservationID, "book_id", res.BookID)

	if res.CopyHeld {
		if err := s.catalog.ReleaseCopy(ctx, res.BookID); err != nil {
			return err
		}
		return s.promoteHead(ctx, res.BookID)
	}
	return nil
}

// OnCopyFreed promotes the head of a book's queue after a copy is released.
// The caller must hold the book lock; ledger returns invoke this inside the
// same transition that released the copy.
func (s *ReservationService) OnCopyFreed(ctx context.Context, bookID int32) error {
	return s.promoteHead(ctx, bookID)
}

// promoteHead re-acquires the freed copy on behalf of the queue head,
// starts its claim window and notifies the student. Requires the book lock.
func (s *ReservationService) promoteHead(ctx context.Context, bookID int32) error {
	head, err := s.querier.GetQueueHead(ctx, bookID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil // nobody waiting, the copy stays available
		}
		return err
	}

	if err := s.catalog.ReserveCopy(ctx, bookID); err != nil {
		if errors.Is(err, models.ErrBookNotAvailable) {
			// The copy was taken before promotion could claim it.
			return nil
		}
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.claimWindow)
	rows, err := s.querier.MarkPromoted(ctx, head.ID, expiresAt, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Already promoted or no longer active; hand the copy back.
		return s.catalog.ReleaseCopy(ctx, bookID)
	}

	s.logger.Info("Reservation promoted",
		"reservation_id", head.ID,
		"book_id", bookID,
		"student_id", head.StudentID)

	head.CopyHeld = true
	head.ExpiresAt = expiresAt
	if err := s.notifier.NotifyReservationReady(ctx, head); err != nil {
		// Reminders are best-effort; delivery is retried by the dispatch
		// worker, not by failing the promotion.
		s.logger.Warn("Failed to notify promoted reservation",
			"reservation_id", head.ID, "error", err)
	}
	return nil
}

// ConsumeHeld fulfills a promoted reservation when its owner issues the
// book: the held copy backs the new loan, so availability is not
// decremented a second time. Returns true when a held copy was consumed.
// The caller must hold the book lock.
func (s *ReservationService) ConsumeHeld(ctx context.Context, bookID, studentID int32) (bool, error) {
	res, err := s.querier.GetActiveReservation(ctx, bookID, studentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !res.CopyHeld {
		return false, nil
	}

	rows, err := s.querier.TransitionReservation(ctx, res.ID, models.ReservationStatusFulfilled)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if err := s.querier.RerankAfterRemoval(ctx, bookID, res.QueuePosition); err != nil {
		return false, err
	}

	s.logger.Info("Held reservation fulfilled",
		"reservation_id", res.ID,
		"book_id", bookID,
		"student_id", studentID)
	return true, nil
}

// ListQueue returns a book's active waiting list in queue order.
func (s *ReservationService) ListQueue(ctx context.Context, bookID int32) ([]models.Reservation, error) {
	if _, err := s.querier.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.querier.ListActiveReservationsByBook(ctx, bookID)
}

// ExpireStale transitions every active reservation past its expiry, both
// queue-membership lapses and missed claim windows. Held copies are
// released and the next student in line promoted. Every mutation is a
// guarded transition, so the sweep is idempotent and safe to overlap with
// manual operations.
func (s *ReservationService) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.querier.ListExpiredActiveReservations(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}

	expired := 0
	for _, res := range stale {
		if err := s.expireOne(ctx, res); err != nil {
			s.logger.Error("Failed to expire reservation",
				"reservation_id", res.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *ReservationService) expireOne(ctx context.Context, res models.Reservation) error {
	unlock := s.locks.Lock(res.BookID)
	defer unlock()

	rows, err := s.querier.TransitionReservation(ctx, res.ID, models.ReservationStatusExpired)
	if err != nil {
		return err
	}
	if rows == 0 {
		return nil // raced with a cancel, fulfillment or another sweep
	}

	if err := s.querier.RerankAfterRemoval(ctx, res.BookID, res.QueuePosition); err != nil {
		return err
	}

	s.logger.Info("Reservation expired", "reservation_id", res.ID, "book_id", res.BookID)

	if res.CopyHeld {
		if err := s.catalog.ReleaseCopy(ctx, res.BookID); err != nil {
			return err
		}
		return s.promoteHead(ctx, res.BookID)
	}
	return nil
}

// StartExpirySweep runs ExpireStale on a fixed interval until the context
// is cancelled.
func (s *ReservationService) StartExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.ExpireStale(ctx); err != nil {
				s.logger.Error("Reservation expiry sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info("Reservation expiry sweep completed", "expired", n)
			}
		}
	}
}

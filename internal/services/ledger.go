package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/schoolhub/circulation/internal/models"
)

// LedgerQuerier defines the interface for loan and fine database operations
type LedgerQuerier interface {
	CreateLoan(ctx context.Context, bookID, studentID int32, issueDate, dueDate time.Time) (models.Loan, error)
	GetLoan(ctx context.Context, id int32) (models.Loan, error)
	CloseLoan(ctx context.Context, loanID int32, returnDate time.Time) (models.Loan, error)
	RenewLoan(ctx context.Context, loanID int32, newDueDate time.Time, history []models.RenewalRecord) (models.Loan, error)
	CountOpenLoansByStudent(ctx context.Context, studentID int32) (int64, error)
	HasOpenLoan(ctx context.Context, bookID, studentID int32) (bool, error)
	ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error)
	CreateFine(ctx context.Context, loanID int32, amount decimal.Decimal, overdueDays int32) (models.Fine, error)
	GetFine(ctx context.Context, id int32) (models.Fine, error)
	PayFine(ctx context.Context, id int32, paidAt time.Time) (int64, error)
	WaiveFine(ctx context.Context, id int32, reason string) (int64, error)
}

// PersonDirectory resolves a student to an eligibility decision before
// issuing. The directory itself (enrollment records, account standing) is
// an external collaborator.
type PersonDirectory interface {
	IsEligible(ctx context.Context, studentID int32) (bool, error)
}

// CirculationPolicy carries the lending constants, lifted out of globals so
// tests can vary them.
type CirculationPolicy struct {
	DefaultLoanDays    int
	RenewalDays        int
	MaxRenewals        int32
	MaxLoansPerStudent int64
}

// LedgerService is the circulation state machine: issue, return, renew. It
// owns loan records and is the only caller of copy-count mutation and
// reservation promotion.
type LedgerService struct {
	querier      LedgerQuerier
	catalog      *CatalogService
	fines        *FineCalculator
	reservations *ReservationService
	directory    PersonDirectory
	locks        *BookLocks
	policy       CirculationPolicy
	logger       *slog.Logger
	now          func() time.Time
}

// NewLedgerService creates a new circulation ledger.
func NewLedgerService(querier LedgerQuerier, catalog *CatalogService, fines *FineCalculator, reservations *ReservationService, directory PersonDirectory, locks *BookLocks, policy CirculationPolicy, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		querier:      querier,
		catalog:      catalog,
		fines:        fines,
		reservations: reservations,
		directory:    directory,
		locks:        locks,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// IssueBook lends a copy to a student until the given due date. When the
// student owns a promoted reservation for the book, the held copy backs the
// loan and the reservation is fulfilled.
func (s *LedgerService) IssueBook(ctx context.Context, bookID, studentID int32, dueDate time.Time) (*models.Loan, error) {
	now := s.now()
	if dueDate.IsZero() {
		dueDate = now.AddDate(0, 0, s.policy.DefaultLoanDays)
	}
	if !dueDate.After(now) {
		return nil, models.ErrInvalidDueDate
	}

	eligible, err := s.directory.IsEligible(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !eligible {
		return nil, models.ErrStudentIneligible
	}

	unlock := s.locks.Lock(bookID)
	defer unlock()

	open, err := s.querier.CountOpenLoansByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if open >= s.policy.MaxLoansPerStudent {
		return nil, models.ErrLoanLimitReached
	}

	duplicate, err := s.querier.HasOpenLoan(ctx, bookID, studentID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, models.ErrDuplicateLoan
	}

	consumed, err := s.reservations.ConsumeHeld(ctx, bookID, studentID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		if err := s.catalog.ReserveCopy(ctx, bookID); err != nil {
			return nil, err
		}
	}

	loan, err := s.querier.CreateLoan(ctx, bookID, studentID, now, dueDate)
	if err != nil {
		if !consumed {
			if relErr := s.catalog.ReleaseCopy(ctx, bookID); relErr != nil {
				s.logger.Error("Failed to release copy after issue failure",
					"book_id", bookID, "error", relErr)
			}
		}
		return nil, err
	}

	s.logger.Info("Book issued",
		"loan_id", loan.ID,
		"book_id", bookID,
		"student_id", studentID,
		"due_date", dueDate,
		"from_reservation", consumed)
	return &loan, nil
}

// ReturnBook closes an open loan: records the return date, creates a fine
// when the return is late, releases the copy and offers it to the head of
// the reservation queue.
func (s *LedgerService) ReturnBook(ctx context.Context, loanID int32) (*models.ReturnResult, error) {
	loan, err := s.querier.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(loan.BookID)
	defer unlock()

	now := s.now()
	closed, err := s.querier.CloseLoan(ctx, loanID, now)
	if err != nil {
		return nil, err
	}

	result := &models.ReturnResult{Loan: &closed}

	overdueDays := OverdueDays(closed.DueDate, now)
	if overdueDays > 0 {
		amount := s.fines.Compute(overdueDays)
		fine, err := s.querier.CreateFine(ctx, loanID, amount, overdueDays)
		if err != nil {
			return nil, err
		}
		result.Fine = &models.FineDetail{
			FineID:      fine.ID,
			Amount:      fine.Amount,
			OverdueDays: fine.OverdueDays,
		}
		s.logger.Info("Fine created",
			"fine_id", fine.ID,
			"loan_id", loanID,
			"overdue_days", overdueDays,
			"amount", amount.String())
	}

	if err := s.catalog.ReleaseCopy(ctx, loan.BookID); err != nil {
		return nil, err
	}

	if err := s.reservations.OnCopyFreed(ctx, loan.BookID); err != nil {
		return nil, err
	}

	s.logger.Info("Book returned",
		"loan_id", loanID,
		"book_id", loan.BookID,
		"overdue_days", overdueDays)
	return result, nil
}

// RenewBook extends an open loan in place, bounded by the renewal ceiling.
// Renewal is permitted while overdue; fines are only computed at return
// time against whatever due date is current then.
func (s *LedgerService) RenewBook(ctx context.Context, loanID int32, newDueDate time.Time) (*models.Loan, error) {
	loan, err := s.querier.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.Open() {
		return nil, models.ErrConflict
	}
	if loan.RenewalCount >= s.policy.MaxRenewals {
		return nil, models.ErrMaxRenewalsExceeded
	}
	now := s.now()
	if newDueDate.IsZero() {
		newDueDate = now.AddDate(0, 0, s.policy.RenewalDays)
	}
	if !newDueDate.After(now) {
		return nil, models.ErrInvalidDueDate
	}

	unlock := s.locks.Lock(loan.BookID)
	defer unlock()

	history := append(loan.RenewalHistory, models.RenewalRecord{
		PreviousDueDate: loan.DueDate,
		NewDueDate:      newDueDate,
	})
	renewed, err := s.querier.RenewLoan(ctx, loanID, newDueDate, history)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loan renewed",
		"loan_id", loanID,
		"new_due_date", newDueDate,
		"renewal_count", renewed.RenewalCount)
	return &renewed, nil
}

// GetLoan fetches one loan.
func (s *LedgerService) GetLoan(ctx context.Context, loanID int32) (*models.Loan, error) {
	loan, err := s.querier.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListOverdueLoans returns every open loan past its due date.
func (s *LedgerService) ListOverdueLoans(ctx context.Context) ([]models.Loan, error) {
	return s.querier.ListOverdueLoans(ctx, s.now())
}

// PayFine settles a pending fine.
func (s *LedgerService) PayFine(ctx context.Context, fineID int32) error {
	rows, err := s.querier.PayFine(ctx, fineID, s.now())
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.querier.GetFine(ctx, fineID); err != nil {
			return err
		}
		return models.ErrConflict
	}
	s.logger.Info("Fine paid", "fine_id", fineID)
	return nil
}

// WaiveFine forgives a pending fine with a recorded reason.
func (s *LedgerService) WaiveFine(ctx context.Context, fineID int32, reason string) error {
	rows, err := s.querier.WaiveFine(ctx, fineID, reason)
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.querier.GetFine(ctx, fineID); err != nil {
			return err
		}
		return models.ErrConflict
	}
	s.logger.Info("Fine waived", "fine_id", fineID, "reason", reason)
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schoolhub/circulation/internal/models"
)

// CatalogQuerier defines the interface for catalog database operations
type CatalogQuerier interface {
	GetBook(ctx context.Context, id int32) (models.Book, error)
	DecrementAvailableCopies(ctx context.Context, bookID int32) (int64, error)
	IncrementAvailableCopies(ctx context.Context, bookID int32) (int64, error)
}

// CatalogService owns the copy-count invariant: for every book,
// available copies plus open loans equals total copies. It is the only
// component that mutates availability.
type CatalogService struct {
	querier CatalogQuerier
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(querier CatalogQuerier, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		querier: querier,
		logger:  logger,
	}
}

// GetBook fetches one title.
func (s *CatalogService) GetBook(ctx context.Context, bookID int32) (models.Book, error) {
	return s.querier.GetBook(ctx, bookID)
}

// ReserveCopy atomically takes one copy off the shelf. The availability
// check and decrement are a single guarded statement, so two concurrent
// issues of the last copy cannot both succeed.
func (s *CatalogService) ReserveCopy(ctx context.Context, bookID int32) error {
	rows, err := s.querier.DecrementAvailableCopies(ctx, bookID)
	if err != nil {
		return fmt.Errorf("reserve copy: %w", err)
	}
	if rows == 0 {
		// Nothing was decremented: either the book does not exist or no
		// copy was available.
		if _, err := s.querier.GetBook(ctx, bookID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound
			}
			return fmt.Errorf("reserve copy: %w", err)
		}
		return models.ErrBookNotAvailable
	}
	return nil
}

// ReleaseCopy atomically puts one copy back, capped at the total. Exceeding
// the total means open loans and copy counts have diverged; that is a bug,
// not a user error, and is logged as a fatal integrity alert.
func (s *CatalogService) ReleaseCopy(ctx context.Context, bookID int32) error {
	rows, err := s.querier.IncrementAvailableCopies(ctx, bookID)
	if err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	if rows == 0 {
		if _, err := s.querier.GetBook(ctx, bookID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrNotFound
			}
			return fmt.Errorf("release copy: %w", err)
		}
		s.logger.Error("Copy count integrity violation: release would exceed total copies",
			"book_id", bookID)
		return models.ErrConsistencyViolation
	}
	return nil
}

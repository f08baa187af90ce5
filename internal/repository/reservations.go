package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/schoolhub/circulation/internal/models"
)

var reservationColumns = []string{
	"id", "book_id", "student_id", "queue_position", "status", "copy_held",
	"reserved_at", "expires_at", "notified_at", "created_at", "updated_at",
}

func scanReservation(row pgx.Row) (models.Reservation, error) {
	var (
		res        models.Reservation
		status     string
		notifiedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&res.ID, &res.BookID, &res.StudentID, &res.QueuePosition, &status, &res.CopyHeld,
		&res.ReservedAt, &res.ExpiresAt, &notifiedAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return models.Reservation{}, err
	}
	res.Status = models.ReservationStatus(status)
	if notifiedAt.Valid {
		res.NotifiedAt = &notifiedAt.Time
	}
	return res, nil
}

// CreateReservation appends a student to a book's waiting list at the given
// position with a queue-membership expiry.
func (r *Repository) CreateReservation(ctx context.Context, bookID, studentID, position int32, reservedAt, expiresAt time.Time) (models.Reservation, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO reservations (book_id, student_id, queue_position, status, copy_held, reserved_at, expires_at)
		 VALUES ($1, $2, $3, 'active', false, $4, $5)
		 RETURNING id, book_id, student_id, queue_position, status, copy_held,
		           reserved_at, expires_at, notified_at, created_at, updated_at`,
		bookID, studentID, position, reservedAt, expiresAt,
	)
	res, err := scanReservation(row)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	return res, nil
}

// GetReservation fetches one reservation by ID.
func (r *Repository) GetReservation(ctx context.Context, id int32) (models.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Reservation{}, err
	}
	res, err := scanReservation(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, models.ErrNotFound
		}
		return models.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// GetActiveReservation finds the student's active reservation for a book,
// if any.
func (r *Repository) GetActiveReservation(ctx context.Context, bookID, studentID int32) (models.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationsTable).
		Where(sq.Eq{"book_id": bookID, "student_id": studentID, "status": "active"}).
		ToSql()
	if err != nil {
		return models.Reservation{}, err
	}
	res, err := scanReservation(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, models.ErrNotFound
		}
		return models.Reservation{}, fmt.Errorf("get active reservation: %w", err)
	}
	return res, nil
}

// GetQueueHead returns the active reservation at position 1 for a book.
func (r *Repository) GetQueueHead(ctx context.Context, bookID int32) (models.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationsTable).
		Where(sq.Eq{"book_id": bookID, "status": "active", "queue_position": 1}).
		ToSql()
	if err != nil {
		return models.Reservation{}, err
	}
	res, err := scanReservation(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, models.ErrNotFound
		}
		return models.Reservation{}, fmt.Errorf("get queue head: %w", err)
	}
	return res, nil
}

// CountActiveReservations counts the active waiting list for a book.
func (r *Repository) CountActiveReservations(ctx context.Context, bookID int32) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM reservations WHERE book_id = $1 AND status = 'active'`,
		bookID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return count, nil
}

// ListActiveReservationsByBook returns a book's waiting list in queue order.
func (r *Repository) ListActiveReservationsByBook(ctx context.Context, bookID int32) ([]models.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationsTable).
		Where(sq.Eq{"book_id": bookID, "status": "active"}).
		OrderBy("queue_position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryReservations(ctx, q, args...)
}

// ListExpiredActiveReservations returns active reservations past their
// expiry, queue-membership and claim-window expiries alike.
func (r *Repository) ListExpiredActiveReservations(ctx context.Context, asOf time.Time) ([]models.Reservation, error) {
	q, args, err := qb.Select(reservationColumns...).
		From(reservationsTable).
		Where(sq.And{sq.Eq{"status": "active"}, sq.Lt{"expires_at": asOf}}).
		OrderBy("book_id ASC", "queue_position ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryReservations(ctx, q, args...)
}

func (r *Repository) queryReservations(ctx context.Context, q string, args ...any) ([]models.Reservation, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// TransitionReservation moves an active reservation to a terminal status.
// Zero rows affected means it was no longer active; sweeps and manual
// operations can race, so callers treat that as already-done.
func (r *Repository) TransitionReservation(ctx context.Context, id int32, to models.ReservationStatus) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE reservations
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = 'active'`,
		id, string(to),
	)
	if err != nil {
		return 0, fmt.Errorf("transition reservation: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkPromoted flags the queue head as holding a copy and starts its claim
// window. Guarded so a reservation is never promoted twice.
func (r *Repository) MarkPromoted(ctx context.Context, id int32, expiresAt, notifiedAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE reservations
		 SET copy_held = true, expires_at = $2, notified_at = $3, updated_at = now()
		 WHERE id = $1 AND status = 'active' AND copy_held = false`,
		id, expiresAt, notifiedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("mark promoted: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RerankAfterRemoval closes the gap a departed reservation leaves behind:
// every active entry behind it moves up one position.
func (r *Repository) RerankAfterRemoval(ctx context.Context, bookID, removedPosition int32) error {
	_, err := r.db.Exec(ctx,
		`UPDATE reservations
		 SET queue_position = queue_position - 1, updated_at = now()
		 WHERE book_id = $1 AND status = 'active' AND queue_position > $2`,
		bookID, removedPosition,
	)
	if err != nil {
		return fmt.Errorf("rerank reservations: %w", err)
	}
	return nil
}

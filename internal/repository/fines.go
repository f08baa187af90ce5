package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/schoolhub/circulation/internal/models"
)

func scanFine(row pgx.Row) (models.Fine, error) {
	var (
		f            models.Fine
		amount       pgtype.Numeric
		waivedReason pgtype.Text
		paidAt       pgtype.Timestamptz
		status       string
	)
	err := row.Scan(
		&f.ID, &f.LoanID, &amount, &f.OverdueDays, &status,
		&waivedReason, &paidAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return models.Fine{}, err
	}
	f.Status = models.FineStatus(status)
	if amount.Valid && amount.Int != nil {
		f.Amount = decimal.NewFromBigInt(amount.Int, amount.Exp)
	}
	if waivedReason.Valid {
		f.WaivedReason = &waivedReason.String
	}
	if paidAt.Valid {
		f.PaidAt = &paidAt.Time
	}
	return f, nil
}

// CreateFine records the penalty for one late return. Amount is fixed here;
// only the status transitions afterward.
func (r *Repository) CreateFine(ctx context.Context, loanID int32, amount decimal.Decimal, overdueDays int32) (models.Fine, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO fines (loan_id, amount, overdue_days, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING id, loan_id, amount, overdue_days, status, waived_reason, paid_at, created_at, updated_at`,
		loanID, amount, overdueDays,
	)
	fine, err := scanFine(row)
	if err != nil {
		return models.Fine{}, fmt.Errorf("create fine: %w", err)
	}
	return fine, nil
}

// GetFine fetches one fine by ID.
func (r *Repository) GetFine(ctx context.Context, id int32) (models.Fine, error) {
	q, args, err := qb.Select("id", "loan_id", "amount", "overdue_days", "status", "waived_reason", "paid_at", "created_at", "updated_at").
		From(finesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Fine{}, err
	}
	fine, err := scanFine(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Fine{}, models.ErrNotFound
		}
		return models.Fine{}, fmt.Errorf("get fine: %w", err)
	}
	return fine, nil
}

// PayFine transitions pending -> paid. Zero rows affected means the fine was
// not pending (already settled), which the caller reports as ErrConflict.
func (r *Repository) PayFine(ctx context.Context, id int32, paidAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE fines
		 SET status = 'paid', paid_at = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		id, paidAt,
	)
	if err != nil {
		return 0, fmt.Errorf("pay fine: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WaiveFine transitions pending -> waived with a reason.
func (r *Repository) WaiveFine(ctx context.Context, id int32, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE fines
		 SET status = 'waived', waived_reason = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		id, reason,
	)
	if err != nil {
		return 0, fmt.Errorf("waive fine: %w", err)
	}
	return tag.RowsAffected(), nil
}

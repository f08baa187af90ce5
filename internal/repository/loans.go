package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/schoolhub/circulation/internal/models"
)

var loanColumns = []string{
	"id", "book_id", "student_id", "issue_date", "due_date", "return_date",
	"renewal_count", "renewal_history", "reminder_count", "last_reminder_at",
	"created_at", "updated_at",
}

func scanLoan(row pgx.Row) (models.Loan, error) {
	var (
		l              models.Loan
		returnDate     pgtype.Timestamptz
		lastReminderAt pgtype.Timestamptz
		history        []byte
	)
	err := row.Scan(
		&l.ID, &l.BookID, &l.StudentID, &l.IssueDate, &l.DueDate, &returnDate,
		&l.RenewalCount, &history, &l.ReminderCount, &lastReminderAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return models.Loan{}, err
	}
	if returnDate.Valid {
		l.ReturnDate = &returnDate.Time
	}
	if lastReminderAt.Valid {
		l.LastReminderAt = &lastReminderAt.Time
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &l.RenewalHistory); err != nil {
			return models.Loan{}, fmt.Errorf("decode renewal history: %w", err)
		}
	}
	return l, nil
}

// CreateLoan opens a loan record with a zero renewal count.
func (r *Repository) CreateLoan(ctx context.Context, bookID, studentID int32, issueDate, dueDate time.Time) (models.Loan, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO loans (book_id, student_id, issue_date, due_date, renewal_count, renewal_history, reminder_count)
		 VALUES ($1, $2, $3, $4, 0, '[]', 0)
		 RETURNING id, book_id, student_id, issue_date, due_date, return_date,
		           renewal_count, renewal_history, reminder_count, last_reminder_at,
		           created_at, updated_at`,
		bookID, studentID, issueDate, dueDate,
	)
	loan, err := scanLoan(row)
	if err != nil {
		return models.Loan{}, fmt.Errorf("create loan: %w", err)
	}
	return loan, nil
}

// GetLoan fetches one loan by ID.
func (r *Repository) GetLoan(ctx context.Context, id int32) (models.Loan, error) {
	q, args, err := qb.Select(loanColumns...).
		From(loansTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Loan{}, err
	}
	loan, err := scanLoan(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Loan{}, models.ErrNotFound
		}
		return models.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

// CountOpenLoansByStudent counts loans the student has not returned yet.
func (r *Repository) CountOpenLoansByStudent(ctx context.Context, studentID int32) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM loans WHERE student_id = $1 AND return_date IS NULL`,
		studentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return count, nil
}

// HasOpenLoan reports whether the student already holds a copy of the book.
func (r *Repository) HasOpenLoan(ctx context.Context, bookID, studentID int32) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM loans
		   WHERE book_id = $1 AND student_id = $2 AND return_date IS NULL
		 )`,
		bookID, studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open loan: %w", err)
	}
	return exists, nil
}

// CloseLoan sets the return date, guarded on the loan still being open so a
// racing return is a no-op surfaced as ErrConflict rather than a double
// close.
func (r *Repository) CloseLoan(ctx context.Context, loanID int32, returnDate time.Time) (models.Loan, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE loans
		 SET return_date = $2, updated_at = now()
		 WHERE id = $1 AND return_date IS NULL
		 RETURNING id, book_id, student_id, issue_date, due_date, return_date,
		           renewal_count, renewal_history, reminder_count, last_reminder_at,
		           created_at, updated_at`,
		loanID, returnDate,
	)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Loan{}, models.ErrConflict
		}
		return models.Loan{}, fmt.Errorf("close loan: %w", err)
	}
	return loan, nil
}

// RenewLoan extends an open loan in place: new due date, incremented
// renewal count, appended history. Guarded on the loan still being open.
func (r *Repository) RenewLoan(ctx context.Context, loanID int32, newDueDate time.Time, history []models.RenewalRecord) (models.Loan, error) {
	encoded, err := json.Marshal(history)
	if err != nil {
		return models.Loan{}, fmt.Errorf("encode renewal history: %w", err)
	}
	row := r.db.QueryRow(ctx,
		`UPDATE loans
		 SET due_date = $2, renewal_count = renewal_count + 1, renewal_history = $3, updated_at = now()
		 WHERE id = $1 AND return_date IS NULL
		 RETURNING id, book_id, student_id, issue_date, due_date, return_date,
		           renewal_count, renewal_history, reminder_count, last_reminder_at,
		           created_at, updated_at`,
		loanID, newDueDate, encoded,
	)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Loan{}, models.ErrConflict
		}
		return models.Loan{}, fmt.Errorf("renew loan: %w", err)
	}
	return loan, nil
}

// ListOverdueLoans returns open loans whose due date has passed.
func (r *Repository) ListOverdueLoans(ctx context.Context, asOf time.Time) ([]models.Loan, error) {
	q, args, err := qb.Select(loanColumns...).
		From(loansTable).
		Where(sq.And{sq.Expr("return_date IS NULL"), sq.Lt{"due_date": asOf}}).
		OrderBy("due_date ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overdue loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// RecordReminder bumps the per-loan reminder counter. Guarded on the loan
// still being open so a sweep racing a return does not touch a closed loan.
func (r *Repository) RecordReminder(ctx context.Context, loanID int32, sentAt time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE loans
		 SET reminder_count = reminder_count + 1, last_reminder_at = $2, updated_at = now()
		 WHERE id = $1 AND return_date IS NULL`,
		loanID, sentAt,
	)
	if err != nil {
		return 0, fmt.Errorf("record reminder: %w", err)
	}
	return tag.RowsAffected(), nil
}

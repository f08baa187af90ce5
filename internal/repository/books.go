package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/schoolhub/circulation/internal/models"
)

// GetBook fetches one title by ID.
func (r *Repository) GetBook(ctx context.Context, id int32) (models.Book, error) {
	q, args, err := qb.Select("id", "isbn", "title", "author", "total_copies", "available_copies", "created_at", "updated_at").
		From(booksTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Book{}, err
	}

	var b models.Book
	err = r.db.QueryRow(ctx, q, args...).Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, models.ErrNotFound
		}
		return models.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// DecrementAvailableCopies takes one copy off the shelf. The availability
// check and the decrement are a single atomic statement; zero rows affected
// means no copy was available.
func (r *Repository) DecrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE books
		 SET available_copies = available_copies - 1, updated_at = now()
		 WHERE id = $1 AND available_copies > 0`,
		bookID,
	)
	if err != nil {
		return 0, fmt.Errorf("decrement available copies: %w", err)
	}
	return tag.RowsAffected(), nil
}

// IncrementAvailableCopies puts one copy back. The cap against total_copies
// is enforced in the statement itself; zero rows affected means the
// increment would have exceeded the total, which the caller treats as a
// consistency violation.
func (r *Repository) IncrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE books
		 SET available_copies = available_copies + 1, updated_at = now()
		 WHERE id = $1 AND available_copies < total_copies`,
		bookID,
	)
	if err != nil {
		return 0, fmt.Errorf("increment available copies: %w", err)
	}
	return tag.RowsAffected(), nil
}

package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx the repositories use; satisfied by *pgxpool.Pool
// and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	booksTable        = "books"
	loansTable        = "loans"
	finesTable        = "fines"
	reservationsTable = "reservations"
	configTable       = "notification_config"
)

// Repository bundles Postgres data access for the circulation engine.
type Repository struct {
	db DBTX
}

// New creates a repository over the given pool or transaction.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewFromPool is a convenience constructor for the common case.
func NewFromPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

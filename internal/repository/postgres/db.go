// Package postgres contains PostgreSQL implementations of the repository
// interfaces. Every mutation is a single atomic statement; derived fields
// (is_verified, status, reputation score) are computed inside the UPDATE so a
// concurrent writer can never be observed half-applied.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DB wraps a pool to satisfy repository constructors and allow mock testing.
type DB struct{ Pool PgxPool }

// New wraps an existing pgx pool.
func New(pool *pgxpool.Pool) *DB { return &DB{Pool: pool} }

// Close shuts down the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

package postgres

import (
	"context"
	"errors"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/jackc/pgx/v5"
)

// UserDirectory reads the users table owned by the external identity service.
// The trust engine only needs existence and active state.
type UserDirectory struct{ db *DB }

// NewUserDirectory constructs a user directory.
func NewUserDirectory(db *DB) *UserDirectory { return &UserDirectory{db: db} }

// Lookup returns the user for userID.
func (d *UserDirectory) Lookup(ctx context.Context, userID int64) (*models.User, error) {
	const q = `SELECT id, username, is_active FROM users WHERE id = $1`
	var u models.User
	if err := d.db.Pool.QueryRow(ctx, q, userID).Scan(&u.ID, &u.Username, &u.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

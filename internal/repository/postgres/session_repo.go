package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `call_id, caller_id, receiver_id, verification_code,
	caller_confirmed, receiver_confirmed, is_verified, status,
	created_at, expires_at, code_verified_at, ended_at, duration_seconds,
	is_flagged, flag_reason`

// SessionRepo implements repository.SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a call session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new call session.
func (r *SessionRepo) Create(ctx context.Context, s *models.CallSession) error {
	const q = `
INSERT INTO call_sessions
	(call_id, caller_id, receiver_id, verification_code, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q,
		s.CallID, s.CallerID, s.ReceiverID, s.VerificationCode,
		string(s.Status), s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrConflict
		}
		return fmt.Errorf("insert call session: %w", err)
	}
	return nil
}

// Get returns the session for callID.
func (r *SessionRepo) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM call_sessions WHERE call_id = $1`
	return scanSession(r.db.Pool.QueryRow(ctx, q, callID))
}

// Confirm sets the party's confirmation flag and derives the verified state in
// a single UPDATE, so the joint "both confirmed" check can never read a stale
// value of the other party's flag. Sessions already in a terminal status keep
// it: a late confirmation may still land its flag but never revives the call.
func (r *SessionRepo) Confirm(ctx context.Context, callID string, party repository.Party, now time.Time) (*models.CallSession, error) {
	q := `
UPDATE call_sessions SET
	caller_confirmed   = caller_confirmed OR $2,
	receiver_confirmed = receiver_confirmed OR $3,
	is_verified        = is_verified OR ((caller_confirmed OR $2) AND (receiver_confirmed OR $3)
		AND status NOT IN ('ended', 'missed', 'rejected', 'failed')),
	status = CASE WHEN (caller_confirmed OR $2) AND (receiver_confirmed OR $3)
		AND status NOT IN ('ended', 'missed', 'rejected', 'failed')
		THEN 'connected' ELSE status END,
	code_verified_at = CASE WHEN (caller_confirmed OR $2) AND (receiver_confirmed OR $3)
		AND status NOT IN ('ended', 'missed', 'rejected', 'failed')
		AND code_verified_at IS NULL THEN $4 ELSE code_verified_at END
WHERE call_id = $1
RETURNING ` + sessionColumns
	isCaller := party == repository.PartyCaller
	s, err := scanSession(r.db.Pool.QueryRow(ctx, q, callID, isCaller, !isCaller, now))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// End transitions the session to ENDED once; repeated calls return the stored
// ended state with applied=false.
func (r *SessionRepo) End(ctx context.Context, callID string, endedAt time.Time, durationSeconds int) (*models.CallSession, bool, error) {
	q := `
UPDATE call_sessions
SET status = 'ended', ended_at = $2, duration_seconds = $3
WHERE call_id = $1 AND status <> 'ended'
RETURNING ` + sessionColumns
	s, err := scanSession(r.db.Pool.QueryRow(ctx, q, callID, endedAt, durationSeconds))
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}
	// Either unknown or already ended; a second lookup disambiguates.
	s, err = r.Get(ctx, callID)
	if err != nil {
		return nil, false, err
	}
	return s, false, nil
}

// Flag marks the session for review.
func (r *SessionRepo) Flag(ctx context.Context, callID, reason string) error {
	const q = `UPDATE call_sessions SET is_flagged = true, flag_reason = $2 WHERE call_id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, callID, reason)
	if err != nil {
		return fmt.Errorf("flag call session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListByParticipant returns the user's call history, newest first.
func (r *SessionRepo) ListByParticipant(ctx context.Context, userID int64, limit, offset int) ([]models.CallSession, error) {
	q := `SELECT ` + sessionColumns + `
FROM call_sessions
WHERE caller_id = $1 OR receiver_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CallSession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*models.CallSession, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRow(row pgx.Row) (*models.CallSession, error) {
	var (
		s          models.CallSession
		status     string
		duration   *int
		flagReason *string
	)
	err := row.Scan(&s.CallID, &s.CallerID, &s.ReceiverID, &s.VerificationCode,
		&s.CallerConfirmed, &s.ReceiverConfirmed, &s.IsVerified, &status,
		&s.CreatedAt, &s.ExpiresAt, &s.CodeVerifiedAt, &s.EndedAt, &duration,
		&s.IsFlagged, &flagReason)
	if err != nil {
		return nil, err
	}
	s.Status = models.CallStatus(status)
	if duration != nil {
		s.DurationSeconds = *duration
	}
	if flagReason != nil {
		s.FlagReason = *flagReason
	}
	return &s, nil
}

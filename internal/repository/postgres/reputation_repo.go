package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/jackc/pgx/v5"
)

// ReputationRepo implements repository.ReputationRepository using PostgreSQL.
// Mutations are single INSERT ... ON CONFLICT statements with the arithmetic
// done in SQL, so concurrent reports and calls against the same user never
// race read-modify-write style.
type ReputationRepo struct{ db *DB }

// NewReputationRepo constructs a reputation repository.
func NewReputationRepo(db *DB) *ReputationRepo { return &ReputationRepo{db: db} }

const reputationColumns = `user_id, total_calls, call_rejections, user_reports,
	blocks, reputation_score, is_flagged, created_at, updated_at`

// Get returns the reputation record for userID.
func (r *ReputationRepo) Get(ctx context.Context, userID int64) (*models.ReputationRecord, error) {
	q := `SELECT ` + reputationColumns + ` FROM reputation_records WHERE user_id = $1`
	var rec models.ReputationRecord
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(
		&rec.UserID, &rec.TotalCalls, &rec.CallRejections, &rec.UserReports,
		&rec.Blocks, &rec.ReputationScore, &rec.IsFlagged, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// RecordCall increments total_calls, lazily creating the record.
func (r *ReputationRepo) RecordCall(ctx context.Context, userID int64, initialScore int) error {
	const q = `
INSERT INTO reputation_records (user_id, total_calls, reputation_score)
VALUES ($1, 1, $2)
ON CONFLICT (user_id) DO UPDATE SET
	total_calls = reputation_records.total_calls + 1,
	updated_at  = now()`
	if _, err := r.db.Pool.Exec(ctx, q, userID, initialScore); err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// ApplyReport increments user_reports and applies the penalty atomically.
// The flag threshold and penalties come from the trust policy, never from
// values baked into the store.
func (r *ReputationRepo) ApplyReport(ctx context.Context, userID int64, initialScore, threshold, basePenalty, flagPenalty int) (*models.ReputationRecord, error) {
	q := `
INSERT INTO reputation_records (user_id, user_reports, reputation_score, is_flagged)
VALUES ($1, 1,
	GREATEST($2 - CASE WHEN 1 >= $3 THEN $5 ELSE $4 END, 0),
	1 >= $3)
ON CONFLICT (user_id) DO UPDATE SET
	user_reports = reputation_records.user_reports + 1,
	reputation_score = GREATEST(reputation_records.reputation_score -
		CASE WHEN reputation_records.user_reports + 1 >= $3 THEN $5 ELSE $4 END, 0),
	is_flagged = reputation_records.is_flagged OR (reputation_records.user_reports + 1 >= $3),
	updated_at = now()
RETURNING ` + reputationColumns
	var rec models.ReputationRecord
	err := r.db.Pool.QueryRow(ctx, q, userID, initialScore, threshold, basePenalty, flagPenalty).Scan(
		&rec.UserID, &rec.TotalCalls, &rec.CallRejections, &rec.UserReports,
		&rec.Blocks, &rec.ReputationScore, &rec.IsFlagged, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("apply report: %w", err)
	}
	return &rec, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/eazylink/calltrust-server/internal/models"
)

// ReportRepo implements repository.ReportRepository using PostgreSQL.
type ReportRepo struct{ db *DB }

// NewReportRepo constructs an abuse report repository.
func NewReportRepo(db *DB) *ReportRepo { return &ReportRepo{db: db} }

// Create inserts a new abuse report.
func (r *ReportRepo) Create(ctx context.Context, rep *models.AbuseReport) error {
	const q = `
INSERT INTO abuse_reports
	(id, reporter_id, reported_user_id, call_id, reason, description, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Pool.Exec(ctx, q,
		rep.ID, rep.ReporterID, rep.ReportedUserID, rep.CallID,
		rep.Reason, rep.Description, string(rep.Status), rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert abuse report: %w", err)
	}
	return nil
}

// ListByReportedUser returns reports filed against a user, newest first.
func (r *ReportRepo) ListByReportedUser(ctx context.Context, userID int64, limit int) ([]models.AbuseReport, error) {
	const q = `
SELECT id, reporter_id, reported_user_id, call_id, reason, description, status, created_at, resolved_at
FROM abuse_reports
WHERE reported_user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AbuseReport
	for rows.Next() {
		var (
			rep    models.AbuseReport
			status string
			desc   *string
		)
		if err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.ReportedUserID, &rep.CallID,
			&rep.Reason, &desc, &status, &rep.CreatedAt, &rep.ResolvedAt); err != nil {
			return nil, err
		}
		rep.Status = models.ReportStatus(status)
		if desc != nil {
			rep.Description = *desc
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

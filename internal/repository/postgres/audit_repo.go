package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
)

// AuditRepo implements repository.AuditRepository using PostgreSQL.
// The ledger is append-only: this type exposes no UPDATE or DELETE path.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit ledger repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Append writes one ledger entry.
func (r *AuditRepo) Append(ctx context.Context, e *models.AuditEntry) error {
	const q = `
INSERT INTO audit_entries
	(id, user_id, action, resource_type, resource_id, ip_address, success, details, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Pool.Exec(ctx, q,
		e.ID, e.UserID, string(e.Action), e.ResourceType, e.ResourceID,
		e.IPAddress, e.Success, e.Details, e.ErrorMessage, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Query returns ledger entries matching the filter, ordered by created_at.
func (r *AuditRepo) Query(ctx context.Context, f repository.AuditFilter) ([]models.AuditEntry, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, user_id, action, resource_type, resource_id, ip_address, success, details, error_message, created_at
FROM audit_entries WHERE 1=1`)

	add := func(clause string, val any) {
		args = append(args, val)
		sb.WriteString(" AND " + clause + "$" + strconv.Itoa(len(args)))
	}
	if f.UserID != nil {
		add("user_id = ", *f.UserID)
	}
	if f.Action != nil {
		add("action = ", string(*f.Action))
	}
	if f.From != nil {
		add("created_at >= ", *f.From)
	}
	if f.To != nil {
		add("created_at <= ", *f.To)
	}

	order := " ORDER BY created_at ASC"
	if f.Descending {
		order = " ORDER BY created_at DESC"
	}
	sb.WriteString(order)

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))

	rows, err := r.db.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			e      models.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.ResourceType, &e.ResourceID,
			&e.IPAddress, &e.Success, &e.Details, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = models.AuditAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

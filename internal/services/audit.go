// Package services contains the trust engine business logic.
// Services are called by handlers and talk to the record store through the
// repository interfaces.
package services

import (
	"context"
	"time"

	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService writes and queries the append-only event ledger.
//
// Writes are best-effort relative to the primary state transition: the caller
// commits its own state first and then records the event, so a ledger failure
// is logged and surfaced in server logs but never unwinds the primary action.
type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.SugaredLogger
}

// NewAuditService creates a new audit service.
func NewAuditService(repo repository.AuditRepository, logger *zap.SugaredLogger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one ledger entry, assigning its id and timestamp.
// Failures are logged, never returned: by the time Record runs the primary
// transition is already durable.
func (s *AuditService) Record(ctx context.Context, e models.AuditEntry) {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	if err := s.repo.Append(ctx, &e); err != nil {
		s.logger.Errorw("audit append failed",
			"action", e.Action,
			"resource_type", e.ResourceType,
			"resource_id", e.ResourceID,
			"error", err,
		)
	}
}

// ByUser returns a user's ledger entries within the optional time range.
func (s *AuditService) ByUser(ctx context.Context, userID int64, action *models.AuditAction, from, to *time.Time, descending bool, limit int) ([]models.AuditEntry, error) {
	return s.repo.Query(ctx, repository.AuditFilter{
		UserID:     &userID,
		Action:     action,
		From:       from,
		To:         to,
		Descending: descending,
		Limit:      limit,
	})
}

// Recent returns the latest ledger entries across all users, optionally
// filtered by action.
func (s *AuditService) Recent(ctx context.Context, action *models.AuditAction, limit int) ([]models.AuditEntry, error) {
	return s.repo.Query(ctx, repository.AuditFilter{
		Action:     action,
		Descending: true,
		Limit:      limit,
	})
}

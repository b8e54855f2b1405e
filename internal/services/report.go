package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportService records abuse complaints against the other participant of a
// call. The reported party is always inferred from the session, never taken
// from the client, so a reporter cannot name an arbitrary third party.
type ReportService struct {
	sessions   repository.SessionRepository
	reports    repository.ReportRepository
	reputation *ReputationService
	audit      *AuditService
	logger     *zap.SugaredLogger
}

// NewReportService creates a new abuse report service.
func NewReportService(
	sessions repository.SessionRepository,
	reports repository.ReportRepository,
	reputation *ReputationService,
	audit *AuditService,
	logger *zap.SugaredLogger,
) *ReportService {
	return &ReportService{
		sessions:   sessions,
		reports:    reports,
		reputation: reputation,
		audit:      audit,
		logger:     logger,
	}
}

// File records a complaint by reporterID against the other participant of the
// call: the report row is persisted as pending, the call is flagged with the
// reason, and the reported user's reputation takes the report penalty.
//
// The reputation update is load-bearing — its failure fails the whole
// operation — while the audit write stays best-effort.
//
// Repeat reports by the same reporter against the same call are not
// deduplicated; each one files anew and re-applies the penalty.
func (s *ReportService) File(ctx context.Context, callID string, reporterID int64, reason, description, ip string) (*models.AbuseReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: report reason is required", errs.ErrBadRequest)
	}

	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !session.Participant(reporterID) {
		return nil, errs.ErrForbidden
	}
	reportedID := session.OtherParty(reporterID)

	report := &models.AbuseReport{
		ID:             uuid.New(),
		ReporterID:     reporterID,
		ReportedUserID: reportedID,
		CallID:         callID,
		Reason:         reason,
		Description:    description,
		Status:         models.ReportPending,
		CreatedAt:      time.Now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	if err := s.sessions.Flag(ctx, callID, reason); err != nil {
		return nil, fmt.Errorf("flag call: %w", err)
	}

	// Load-bearing side effect: a report without its reputation hit is worthless.
	rec, err := s.reputation.RecordReport(ctx, reportedID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:       &reporterID,
		Action:       models.ActionUserReported,
		ResourceType: "call",
		ResourceID:   callID,
		IPAddress:    ip,
		Success:      true,
	})

	s.logger.Infow("call reported",
		"call_id", callID,
		"reporter_id", reporterID,
		"reported_user_id", reportedID,
		"reason", reason,
		"reported_score", rec.ReputationScore,
		"reported_flagged", rec.IsFlagged,
	)

	return report, nil
}

// AgainstUser returns recent reports filed against a user, for investigation
// tooling.
func (s *ReportService) AgainstUser(ctx context.Context, userID int64, limit int) ([]models.AbuseReport, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.reports.ListByReportedUser(ctx, userID, limit)
}

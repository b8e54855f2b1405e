package services

import (
	"context"
	"fmt"

	"github.com/eazylink/calltrust-server/internal/config"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
	"go.uber.org/zap"
)

// ReputationService maintains per-user trust scores. The model is strictly
// monotonic-decreasing: no operation raises a score or clears the review flag.
// Recovery, if it ever arrives, is an operator action on the report, not a
// score mutation here.
type ReputationService struct {
	repo   repository.ReputationRepository
	policy config.TrustPolicy
	logger *zap.SugaredLogger
}

// NewReputationService creates a reputation service with explicit policy values.
func NewReputationService(repo repository.ReputationRepository, policy config.TrustPolicy, logger *zap.SugaredLogger) *ReputationService {
	return &ReputationService{repo: repo, policy: policy, logger: logger}
}

// RecordCall counts a placed call against the caller's record, creating the
// record lazily on first call.
func (s *ReputationService) RecordCall(ctx context.Context, userID int64) error {
	if err := s.repo.RecordCall(ctx, userID, s.policy.InitialScore); err != nil {
		return fmt.Errorf("record call for user %d: %w", userID, err)
	}
	return nil
}

// RecordReport counts a report against the user and applies the score penalty:
// the base penalty below the flag threshold, the larger one once the
// post-increment count reaches it. The threshold report itself carries the
// larger penalty and sets the review flag.
func (s *ReputationService) RecordReport(ctx context.Context, userID int64) (*models.ReputationRecord, error) {
	rec, err := s.repo.ApplyReport(ctx, userID,
		s.policy.InitialScore, s.policy.FlagThreshold,
		s.policy.ReportPenalty, s.policy.FlagPenalty)
	if err != nil {
		return nil, fmt.Errorf("apply report for user %d: %w", userID, err)
	}
	if rec.IsFlagged {
		s.logger.Warnw("user flagged for review",
			"user_id", userID,
			"reports", rec.UserReports,
			"score", rec.ReputationScore,
		)
	}
	return rec, nil
}

// Get returns a user's reputation record.
func (s *ReputationService) Get(ctx context.Context, userID int64) (*models.ReputationRecord, error) {
	return s.repo.Get(ctx, userID)
}

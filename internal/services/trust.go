package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/eazylink/calltrust-server/internal/config"
	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
	"go.uber.org/zap"
)

// TrustService orchestrates the call session lifecycle and the mutual
// code-confirmation protocol. Both call participants address it concurrently
// through independent connections; all cross-request ordering is delegated to
// the record store's atomic per-record updates.
type TrustService struct {
	sessions   repository.SessionRepository
	users      repository.UserDirectory
	reputation *ReputationService
	audit      *AuditService
	policy     config.TrustPolicy
	logger     *zap.SugaredLogger

	// now is swappable in tests to drive the expiry window.
	now func() time.Time
}

// NewTrustService creates the trust engine core.
func NewTrustService(
	sessions repository.SessionRepository,
	users repository.UserDirectory,
	reputation *ReputationService,
	audit *AuditService,
	policy config.TrustPolicy,
	logger *zap.SugaredLogger,
) *TrustService {
	return &TrustService{
		sessions:   sessions,
		users:      users,
		reputation: reputation,
		audit:      audit,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
}

// InitiateResult is returned to the caller after session creation.
type InitiateResult struct {
	CallID           string    `json:"call_id"`
	VerificationCode string    `json:"verification_code"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Initiate allocates a session with a fresh verification code for a call from
// callerID to receiverID, counts the call against the caller's reputation, and
// records the event in the audit ledger.
func (s *TrustService) Initiate(ctx context.Context, callerID, receiverID int64, ip string) (*InitiateResult, error) {
	if receiverID == callerID {
		return nil, fmt.Errorf("%w: cannot call yourself", errs.ErrBadRequest)
	}
	receiver, err := s.users.Lookup(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, err)
	}
	if !receiver.IsActive {
		return nil, fmt.Errorf("%w: receiver account is inactive", errs.ErrBadRequest)
	}

	callID, err := generateCallID()
	if err != nil {
		return nil, fmt.Errorf("generate call id: %w", err)
	}
	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now()
	session := &models.CallSession{
		CallID:           callID,
		CallerID:         callerID,
		ReceiverID:       receiverID,
		VerificationCode: code,
		Status:           models.CallInitiating,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.policy.CodeTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.reputation.RecordCall(ctx, callerID); err != nil {
		// Call counting is informational; the session already exists.
		s.logger.Errorw("record call failed", "caller_id", callerID, "error", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:       &callerID,
		Action:       models.ActionCallInitiated,
		ResourceType: "call",
		ResourceID:   callID,
		IPAddress:    ip,
		Success:      true,
	})

	s.logger.Infow("call initiated",
		"call_id", callID,
		"caller_id", callerID,
		"receiver_id", receiverID,
		"expires_at", session.ExpiresAt,
	)

	return &InitiateResult{
		CallID:           callID,
		VerificationCode: code,
		ExpiresAt:        session.ExpiresAt,
	}, nil
}

// GetCode returns the session's verification code and expiry. The code itself
// is the shared secret; any holder of the call_id may retrieve it, since both
// participants must be able to fetch it through their own client.
func (s *TrustService) GetCode(ctx context.Context, callID string) (string, time.Time, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.now().After(session.ExpiresAt) {
		return "", time.Time{}, errs.ErrExpired
	}
	return session.VerificationCode, session.ExpiresAt, nil
}

// Confirm records the actor's code confirmation. When the second participant
// confirms, the session atomically becomes verified and CONNECTED; the flag
// update and joint check happen in one store update, so an interleaved
// confirmation from the other side is never lost.
//
// Confirming an already-confirmed side is a no-op. A wrong code sets nothing.
func (s *TrustService) Confirm(ctx context.Context, callID string, actorID int64, submittedCode, ip string) (*models.CallSession, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		return nil, errs.ErrExpired
	}
	if submittedCode != session.VerificationCode {
		return nil, errs.ErrCodeMismatch
	}

	var party repository.Party
	switch actorID {
	case session.CallerID:
		party = repository.PartyCaller
	case session.ReceiverID:
		party = repository.PartyReceiver
	default:
		return nil, errs.ErrForbidden
	}

	updated, err := s.sessions.Confirm(ctx, callID, party, s.now())
	if err != nil {
		return nil, fmt.Errorf("confirm session: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:       &actorID,
		Action:       models.ActionCallVerified,
		ResourceType: "call",
		ResourceID:   callID,
		IPAddress:    ip,
		Success:      true,
		Details:      fmt.Sprintf(`{"is_verified":%t}`, updated.IsVerified),
	})

	return updated, nil
}

// End transitions the session to ENDED with the caller-supplied duration.
// The duration is trusted input from the client, not independently measured.
// A second End on the same session is a no-op returning the stored state,
// so a racing hang-up from the other side cannot re-mutate timestamps.
func (s *TrustService) End(ctx context.Context, callID string, actorID int64, durationSeconds int, ip string) (*models.CallSession, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !session.Participant(actorID) {
		return nil, errs.ErrForbidden
	}

	updated, applied, err := s.sessions.End(ctx, callID, s.now(), durationSeconds)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if !applied {
		return updated, nil
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:       &actorID,
		Action:       models.ActionCallEnded,
		ResourceType: "call",
		ResourceID:   callID,
		IPAddress:    ip,
		Success:      true,
	})
	return updated, nil
}

// History returns the actor's call sessions, newest first.
func (s *TrustService) History(ctx context.Context, actorID int64, limit, offset int) ([]models.CallSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.sessions.ListByParticipant(ctx, actorID, limit, offset)
}

// Session returns the stored session; used by collaborators that need
// participant checks (RTC tokens, reports).
func (s *TrustService) Session(ctx context.Context, callID string) (*models.CallSession, error) {
	return s.sessions.Get(ctx, callID)
}

// generateVerificationCode draws a uniform 6-digit numeric code from
// crypto/rand. Both parties see the same code; it changes per call and is
// meaningful only inside the expiry window.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generateCallID produces an opaque URL-safe channel identifier. The media
// provider uses it as a channel name; this core never inspects it.
func generateCallID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Package repository defines the storage boundary of the trust engine.
// Implementations must provide atomic per-record create/read/update; the
// engine never performs a read-then-write outside these methods.
package repository

import (
	"context"
	"time"

	"github.com/eazylink/calltrust-server/internal/models"
)

// Party identifies which side of a call an actor is on.
type Party int

const (
	PartyCaller Party = iota
	PartyReceiver
)

// SessionRepository stores call sessions keyed by call_id.
type SessionRepository interface {
	// Create inserts a new session. The verification code is unique per session.
	Create(ctx context.Context, s *models.CallSession) error

	// Get returns the session or errs.ErrNotFound.
	Get(ctx context.Context, callID string) (*models.CallSession, error)

	// Confirm atomically sets the given party's confirmation flag and, in the
	// same update, derives is_verified/status/code_verified_at when both flags
	// are set. The joint check must never observe a stale flag.
	Confirm(ctx context.Context, callID string, party Party, now time.Time) (*models.CallSession, error)

	// End transitions the session to ENDED with the supplied duration. A session
	// already ended is left untouched; the stored state is returned with
	// applied=false.
	End(ctx context.Context, callID string, endedAt time.Time, durationSeconds int) (s *models.CallSession, applied bool, err error)

	// Flag marks the session for review with the given reason.
	Flag(ctx context.Context, callID, reason string) error

	// ListByParticipant returns sessions where userID is caller or receiver,
	// newest first.
	ListByParticipant(ctx context.Context, userID int64, limit, offset int) ([]models.CallSession, error)
}

// ReputationRepository stores per-user reputation records. All mutations are
// atomic increments; records are created lazily by the mutation itself.
type ReputationRepository interface {
	// Get returns the record or errs.ErrNotFound.
	Get(ctx context.Context, userID int64) (*models.ReputationRecord, error)

	// RecordCall increments total_calls, creating the record if absent.
	RecordCall(ctx context.Context, userID int64, initialScore int) error

	// ApplyReport increments user_reports and applies the score penalty in one
	// atomic update: flagPenalty once the post-increment count reaches
	// threshold, basePenalty below it. The score never drops below zero and
	// the flag, once set, is never cleared.
	ApplyReport(ctx context.Context, userID int64, initialScore, threshold, basePenalty, flagPenalty int) (*models.ReputationRecord, error)
}

// ReportRepository stores abuse reports. Multiple reports per (reporter, call)
// are allowed.
type ReportRepository interface {
	Create(ctx context.Context, r *models.AbuseReport) error
	ListByReportedUser(ctx context.Context, userID int64, limit int) ([]models.AbuseReport, error)
}

// AuditFilter narrows an audit query. Nil fields match everything.
type AuditFilter struct {
	UserID     *int64
	Action     *models.AuditAction
	From, To   *time.Time
	Descending bool
	Limit      int
}

// AuditRepository is the append-only event ledger. No method updates or
// deletes an entry.
type AuditRepository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	Query(ctx context.Context, f AuditFilter) ([]models.AuditEntry, error)
}

// UserDirectory is the read surface onto the external identity system.
type UserDirectory interface {
	// Lookup returns the user or errs.ErrNotFound.
	Lookup(ctx context.Context, userID int64) (*models.User, error)
}

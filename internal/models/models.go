// Package models defines the data structures of the call trust engine.
// These map to the PostgreSQL schema in internal/migrate.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallInitiating CallStatus = "initiating"
	CallRinging    CallStatus = "ringing"
	CallConnected  CallStatus = "connected"
	CallEnded      CallStatus = "ended"
	CallMissed     CallStatus = "missed"
	CallRejected   CallStatus = "rejected"
	CallFailed     CallStatus = "failed"
)

// Valid reports whether s is a known call status. RINGING/MISSED/REJECTED/FAILED
// belong to the signaling layer; the trust engine never assigns them itself but
// must accept them as legal stored values.
func (s CallStatus) Valid() bool {
	switch s {
	case CallInitiating, CallRinging, CallConnected, CallEnded,
		CallMissed, CallRejected, CallFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallEnded, CallMissed, CallRejected, CallFailed:
		return true
	}
	return false
}

// ReportStatus is the investigation state of an abuse report.
type ReportStatus string

const (
	ReportPending       ReportStatus = "pending"
	ReportInvestigating ReportStatus = "investigating"
	ReportResolved      ReportStatus = "resolved"
)

// AuditAction is the closed set of auditable events. The auth-related actions
// are written by the (external) identity layer against the same ledger.
type AuditAction string

const (
	ActionUserLogin     AuditAction = "user_login"
	ActionUserLogout    AuditAction = "user_logout"
	ActionUserRegister  AuditAction = "user_register"
	ActionFailedLogin   AuditAction = "failed_login"
	ActionCallInitiated AuditAction = "call_initiated"
	ActionCallAccepted  AuditAction = "call_accepted"
	ActionCallVerified  AuditAction = "call_verified"
	ActionCallEnded     AuditAction = "call_ended"
	ActionCallRejected  AuditAction = "call_rejected"
	ActionUserBlocked   AuditAction = "user_blocked"
	ActionUserReported  AuditAction = "user_reported"
	ActionSuspicious    AuditAction = "suspicious_activity"
)

// Valid reports whether a is a known audit action.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionUserLogin, ActionUserLogout, ActionUserRegister, ActionFailedLogin,
		ActionCallInitiated, ActionCallAccepted, ActionCallVerified, ActionCallEnded,
		ActionCallRejected, ActionUserBlocked, ActionUserReported, ActionSuspicious:
		return true
	}
	return false
}

// CallSession tracks one call attempt from initiation to a terminal state.
// The verification code is a call-scoped shared secret both participants must
// independently submit; is_verified is derived from the two confirmation flags
// and set by no other path.
type CallSession struct {
	CallID            string     `json:"call_id" db:"call_id"`
	CallerID          int64      `json:"caller_id" db:"caller_id"`
	ReceiverID        int64      `json:"receiver_id" db:"receiver_id"`
	VerificationCode  string     `json:"-" db:"verification_code"`
	CallerConfirmed   bool       `json:"caller_confirmed" db:"caller_confirmed"`
	ReceiverConfirmed bool       `json:"receiver_confirmed" db:"receiver_confirmed"`
	IsVerified        bool       `json:"is_verified" db:"is_verified"`
	Status            CallStatus `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at" db:"expires_at"`
	CodeVerifiedAt    *time.Time `json:"code_verified_at,omitempty" db:"code_verified_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds   int        `json:"duration_seconds" db:"duration_seconds"`
	IsFlagged         bool       `json:"is_flagged" db:"is_flagged"`
	FlagReason        string     `json:"flag_reason,omitempty" db:"flag_reason"`
}

// Participant reports whether userID is the caller or the receiver of the session.
func (c *CallSession) Participant(userID int64) bool {
	return userID == c.CallerID || userID == c.ReceiverID
}

// OtherParty returns the participant that is not userID. Callers must have
// checked Participant first.
func (c *CallSession) OtherParty(userID int64) int64 {
	if userID == c.CallerID {
		return c.ReceiverID
	}
	return c.CallerID
}

// ReputationRecord is the per-user trust state, created lazily on first call
// or first report against the user. The score only ever decreases.
type ReputationRecord struct {
	UserID          int64     `json:"user_id" db:"user_id"`
	TotalCalls      int       `json:"total_calls" db:"total_calls"`
	CallRejections  int       `json:"call_rejections" db:"call_rejections"`
	UserReports     int       `json:"user_reports" db:"user_reports"`
	Blocks          int       `json:"blocks" db:"blocks"`
	ReputationScore int       `json:"reputation_score" db:"reputation_score"`
	IsFlagged       bool      `json:"is_flagged" db:"is_flagged"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// AbuseReport records one filed complaint. ReportedUserID is always inferred
// as the other participant of the referenced call, never client-supplied.
type AbuseReport struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	ReporterID     int64        `json:"reporter_id" db:"reporter_id"`
	ReportedUserID int64        `json:"reported_user_id" db:"reported_user_id"`
	CallID         string       `json:"call_id" db:"call_id"`
	Reason         string       `json:"reason" db:"reason"`
	Description    string       `json:"description,omitempty" db:"description"`
	Status         ReportStatus `json:"status" db:"status"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AuditEntry is an append-only ledger row. Entries are never updated or
// deleted by application code; retention is an external job.
type AuditEntry struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	UserID       *int64      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction `json:"action" db:"action"`
	ResourceType string      `json:"resource_type" db:"resource_type"`
	ResourceID   string      `json:"resource_id" db:"resource_id"`
	IPAddress    string      `json:"ip_address,omitempty" db:"ip_address"`
	Success      bool        `json:"success" db:"success"`
	Details      string      `json:"details,omitempty" db:"details"`
	ErrorMessage string      `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// User is the minimal read surface this core needs from the identity system:
// existence and active state of a receiver.
type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// HealthStatus is the server health check response.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
}

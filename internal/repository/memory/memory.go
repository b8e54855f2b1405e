// Package memory provides mutex-guarded in-memory implementations of the
// repository interfaces. Used for local development (STORE_BACKEND=memory)
// and for service-level tests. Each method is one critical section, matching
// the atomic-per-record guarantee of the postgres implementations.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository"
)

// Store holds all trust-engine state in memory.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*models.CallSession
	reputation map[int64]*models.ReputationRecord
	reports    []models.AbuseReport
	audit      []models.AuditEntry
	users      map[int64]models.User
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions:   make(map[string]*models.CallSession),
		reputation: make(map[int64]*models.ReputationRecord),
		users:      make(map[int64]models.User),
	}
}

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() repository.SessionRepository { return (*sessionRepo)(s) }

// Reputation returns the reputation repository view of the store.
func (s *Store) Reputation() repository.ReputationRepository { return (*reputationRepo)(s) }

// Reports returns the abuse report repository view of the store.
func (s *Store) Reports() repository.ReportRepository { return (*reportRepo)(s) }

// Audit returns the audit ledger view of the store.
func (s *Store) Audit() repository.AuditRepository { return (*auditRepo)(s) }

// Users returns the user directory view of the store.
func (s *Store) Users() repository.UserDirectory { return (*userDirectory)(s) }

// SeedUser registers a user in the directory (development/tests).
func (s *Store) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, sess *models.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.CallID]; ok {
		return errs.ErrConflict
	}
	cp := *sess
	r.sessions[sess.CallID] = &cp
	return nil
}

func (r *sessionRepo) Get(_ context.Context, callID string) (*models.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[callID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) Confirm(_ context.Context, callID string, party repository.Party, now time.Time) (*models.CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[callID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if party == repository.PartyCaller {
		sess.CallerConfirmed = true
	} else {
		sess.ReceiverConfirmed = true
	}
	if sess.CallerConfirmed && sess.ReceiverConfirmed && !sess.IsVerified && !sess.Status.Terminal() {
		sess.IsVerified = true
		sess.Status = models.CallConnected
		t := now
		sess.CodeVerifiedAt = &t
	}
	cp := *sess
	return &cp, nil
}

func (r *sessionRepo) End(_ context.Context, callID string, endedAt time.Time, durationSeconds int) (*models.CallSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[callID]
	if !ok {
		return nil, false, errs.ErrNotFound
	}
	if sess.Status == models.CallEnded {
		cp := *sess
		return &cp, false, nil
	}
	sess.Status = models.CallEnded
	t := endedAt
	sess.EndedAt = &t
	sess.DurationSeconds = durationSeconds
	cp := *sess
	return &cp, true, nil
}

func (r *sessionRepo) Flag(_ context.Context, callID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[callID]
	if !ok {
		return errs.ErrNotFound
	}
	sess.IsFlagged = true
	sess.FlagReason = reason
	return nil
}

func (r *sessionRepo) ListByParticipant(_ context.Context, userID int64, limit, offset int) ([]models.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.CallSession
	for _, sess := range r.sessions {
		if sess.Participant(userID) {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type reputationRepo Store

func (r *reputationRepo) Get(_ context.Context, userID int64) (*models.ReputationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.reputation[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ensure must be called with the write lock held.
func (r *reputationRepo) ensure(userID int64, initialScore int) *models.ReputationRecord {
	rec, ok := r.reputation[userID]
	if !ok {
		now := time.Now()
		rec = &models.ReputationRecord{
			UserID:          userID,
			ReputationScore: initialScore,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		r.reputation[userID] = rec
	}
	return rec
}

func (r *reputationRepo) RecordCall(_ context.Context, userID int64, initialScore int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.ensure(userID, initialScore)
	rec.TotalCalls++
	rec.UpdatedAt = time.Now()
	return nil
}

func (r *reputationRepo) ApplyReport(_ context.Context, userID int64, initialScore, threshold, basePenalty, flagPenalty int) (*models.ReputationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.ensure(userID, initialScore)
	rec.UserReports++
	penalty := basePenalty
	if rec.UserReports >= threshold {
		penalty = flagPenalty
		rec.IsFlagged = true
	}
	rec.ReputationScore -= penalty
	if rec.ReputationScore < 0 {
		rec.ReputationScore = 0
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

type reportRepo Store

func (r *reportRepo) Create(_ context.Context, rep *models.AbuseReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, *rep)
	return nil
}

func (r *reportRepo) ListByReportedUser(_ context.Context, userID int64, limit int) ([]models.AbuseReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.AbuseReport
	for i := len(r.reports) - 1; i >= 0; i-- {
		if r.reports[i].ReportedUserID == userID {
			out = append(out, r.reports[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type auditRepo Store

func (r *auditRepo) Append(_ context.Context, e *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, *e)
	return nil
}

func (r *auditRepo) Query(_ context.Context, f repository.AuditFilter) ([]models.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.AuditEntry
	for _, e := range r.audit {
		if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.From != nil && e.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Descending {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type userDirectory Store

func (d *userDirectory) Lookup(_ context.Context, userID int64) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

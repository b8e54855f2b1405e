package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/eazylink/calltrust-server/internal/config"
	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	alice = int64(1)
	bob   = int64(2)
	carol = int64(3)
)

type fixture struct {
	store  *memory.Store
	trust  *TrustService
	report *ReportService
	audit  *AuditService
	clock  *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedUser(models.User{ID: alice, Username: "alice", IsActive: true})
	store.SeedUser(models.User{ID: bob, Username: "bob", IsActive: true})
	store.SeedUser(models.User{ID: carol, Username: "carol", IsActive: true})
	store.SeedUser(models.User{ID: 99, Username: "mallory", IsActive: false})

	logger := zap.NewNop().Sugar()
	policy := config.DefaultTrustPolicy()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	auditSvc := NewAuditService(store.Audit(), logger)
	repSvc := NewReputationService(store.Reputation(), policy, logger)
	trust := NewTrustService(store.Sessions(), store.Users(), repSvc, auditSvc, policy, logger)
	trust.now = clock.Now
	report := NewReportService(store.Sessions(), store.Reports(), repSvc, auditSvc, logger)

	return &fixture{store: store, trust: trust, report: report, audit: auditSvc, clock: clock}
}

func TestInitiate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, res.CallID)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), res.VerificationCode)
	require.Equal(t, f.clock.Now().Add(30*time.Minute), res.ExpiresAt)

	session, err := f.trust.Session(ctx, res.CallID)
	require.NoError(t, err)
	require.Equal(t, models.CallInitiating, session.Status)
	require.False(t, session.IsVerified)

	// caller's call count is recorded lazily
	rec, err := f.trust.reputation.Get(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 1, rec.TotalCalls)
	require.Equal(t, 100, rec.ReputationScore)

	// initiation lands in the ledger
	entries, err := f.audit.ByUser(ctx, alice, nil, nil, nil, true, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionCallInitiated, entries[0].Action)
}

func TestInitiate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.trust.Initiate(ctx, alice, alice, "")
	require.ErrorIs(t, err, errs.ErrBadRequest)

	_, err = f.trust.Initiate(ctx, alice, 404, "")
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.trust.Initiate(ctx, alice, 99, "")
	require.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestGetCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	code, expiresAt, err := f.trust.GetCode(ctx, res.CallID)
	require.NoError(t, err)
	require.Equal(t, res.VerificationCode, code)
	require.Equal(t, res.ExpiresAt, expiresAt)

	_, _, err = f.trust.GetCode(ctx, "no-such-call")
	require.ErrorIs(t, err, errs.ErrNotFound)

	f.clock.Advance(31 * time.Minute)
	_, _, err = f.trust.GetCode(ctx, res.CallID)
	require.ErrorIs(t, err, errs.ErrExpired)
}

func TestConfirm_MutualVerification(t *testing.T) {
	orders := map[string][2]int64{
		"caller first":   {alice, bob},
		"receiver first": {bob, alice},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			res, err := f.trust.Initiate(ctx, alice, bob, "")
			require.NoError(t, err)

			first, err := f.trust.Confirm(ctx, res.CallID, order[0], res.VerificationCode, "")
			require.NoError(t, err)
			require.False(t, first.IsVerified)
			require.Equal(t, models.CallInitiating, first.Status)

			second, err := f.trust.Confirm(ctx, res.CallID, order[1], res.VerificationCode, "")
			require.NoError(t, err)
			require.True(t, second.IsVerified)
			require.True(t, second.CallerConfirmed)
			require.True(t, second.ReceiverConfirmed)
			require.Equal(t, models.CallConnected, second.Status)
			require.NotNil(t, second.CodeVerifiedAt)
		})
	}
}

func TestConfirm_WrongCodeSetsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	wrong := "000000"
	if res.VerificationCode == wrong {
		wrong = "000001"
	}
	_, err = f.trust.Confirm(ctx, res.CallID, alice, wrong, "")
	require.ErrorIs(t, err, errs.ErrCodeMismatch)

	session, err := f.trust.Session(ctx, res.CallID)
	require.NoError(t, err)
	require.False(t, session.CallerConfirmed)
	require.False(t, session.ReceiverConfirmed)
	require.False(t, session.IsVerified)
}

func TestConfirm_NonParticipantForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	_, err = f.trust.Confirm(ctx, res.CallID, carol, res.VerificationCode, "")
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestConfirm_ExpiredEvenWithRightCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	_, err = f.trust.Confirm(ctx, res.CallID, alice, res.VerificationCode, "")
	require.ErrorIs(t, err, errs.ErrExpired)
}

func TestConfirm_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		session, err := f.trust.Confirm(ctx, res.CallID, alice, res.VerificationCode, "")
		require.NoError(t, err)
		require.True(t, session.CallerConfirmed)
		require.False(t, session.IsVerified)
	}
}

func TestConfirm_AfterEndStaysEnded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	_, err = f.trust.Confirm(ctx, res.CallID, alice, res.VerificationCode, "")
	require.NoError(t, err)
	_, err = f.trust.End(ctx, res.CallID, alice, 15, "")
	require.NoError(t, err)

	// the receiver's late confirmation, still inside the code window, must not
	// revive the ended call
	session, err := f.trust.Confirm(ctx, res.CallID, bob, res.VerificationCode, "")
	require.NoError(t, err)
	require.Equal(t, models.CallEnded, session.Status)
	require.False(t, session.IsVerified)
	require.Nil(t, session.CodeVerifiedAt)
	require.True(t, session.ReceiverConfirmed)
}

func TestConfirm_ConcurrentBothSides(t *testing.T) {
	// Lost-update hazard: both parties confirm at the same moment. The store
	// applies each as an atomic per-record update, so the joint check may not
	// miss the "both confirmed" transition.
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		ctx := context.Background()

		res, err := f.trust.Initiate(ctx, alice, bob, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, actor := range []int64{alice, bob} {
			wg.Add(1)
			go func(actor int64) {
				defer wg.Done()
				_, err := f.trust.Confirm(ctx, res.CallID, actor, res.VerificationCode, "")
				require.NoError(t, err)
			}(actor)
		}
		wg.Wait()

		session, err := f.trust.Session(ctx, res.CallID)
		require.NoError(t, err)
		require.True(t, session.IsVerified)
		require.Equal(t, models.CallConnected, session.Status)
	}
}

func TestEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	_, err = f.trust.End(ctx, "no-such-call", alice, 10, "")
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.trust.End(ctx, res.CallID, carol, 10, "")
	require.ErrorIs(t, err, errs.ErrForbidden)

	session, err := f.trust.End(ctx, res.CallID, alice, 42, "")
	require.NoError(t, err)
	require.Equal(t, models.CallEnded, session.Status)
	require.Equal(t, 42, session.DurationSeconds)
	require.NotNil(t, session.EndedAt)
	firstEndedAt := *session.EndedAt

	// repeated end is a no-op: the stored duration and timestamp survive
	f.clock.Advance(5 * time.Minute)
	again, err := f.trust.End(ctx, res.CallID, alice, 99, "")
	require.NoError(t, err)
	require.Equal(t, models.CallEnded, again.Status)
	require.Equal(t, 42, again.DurationSeconds)
	require.Equal(t, firstEndedAt, *again.EndedAt)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.trust.Initiate(ctx, alice, bob, "")
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	_, err := f.trust.Initiate(ctx, carol, bob, "")
	require.NoError(t, err)

	calls, err := f.trust.History(ctx, alice, 10, 0)
	require.NoError(t, err)
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		require.True(t, !calls[i-1].CreatedAt.Before(calls[i].CreatedAt))
	}

	calls, err = f.trust.History(ctx, bob, 10, 0)
	require.NoError(t, err)
	require.Len(t, calls, 4)
}

func TestVerificationCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	}
}

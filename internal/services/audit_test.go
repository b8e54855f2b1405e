package services

import (
	"context"
	"testing"
	"time"

	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAudit_QueryFilters(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuditService(store.Audit(), zap.NewNop().Sugar())
	ctx := context.Background()

	user := int64(7)
	other := int64(8)
	svc.Record(ctx, models.AuditEntry{UserID: &user, Action: models.ActionCallInitiated, ResourceType: "call", ResourceID: "c1", Success: true})
	svc.Record(ctx, models.AuditEntry{UserID: &user, Action: models.ActionCallEnded, ResourceType: "call", ResourceID: "c1", Success: true})
	svc.Record(ctx, models.AuditEntry{UserID: &other, Action: models.ActionCallInitiated, ResourceType: "call", ResourceID: "c2", Success: true})
	svc.Record(ctx, models.AuditEntry{Action: models.ActionFailedLogin, ResourceType: "user", Success: false})

	entries, err := svc.ByUser(ctx, user, nil, nil, nil, false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	action := models.ActionCallEnded
	entries, err = svc.ByUser(ctx, user, &action, nil, nil, false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "c1", entries[0].ResourceID)

	// entries with no actor (pre-authentication events) are reachable via Recent
	entries, err = svc.Recent(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
}

func TestAudit_Ordering(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuditService(store.Audit(), zap.NewNop().Sugar())
	ctx := context.Background()

	user := int64(7)
	for i := 0; i < 3; i++ {
		svc.Record(ctx, models.AuditEntry{UserID: &user, Action: models.ActionCallInitiated, ResourceType: "call", Success: true})
		time.Sleep(2 * time.Millisecond)
	}

	asc, err := svc.ByUser(ctx, user, nil, nil, nil, false, 0)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	require.True(t, asc[0].CreatedAt.Before(asc[2].CreatedAt))

	desc, err := svc.ByUser(ctx, user, nil, nil, nil, true, 0)
	require.NoError(t, err)
	require.True(t, desc[0].CreatedAt.After(desc[2].CreatedAt))
}

func TestAudit_TimeRange(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuditService(store.Audit(), zap.NewNop().Sugar())
	ctx := context.Background()

	user := int64(7)
	svc.Record(ctx, models.AuditEntry{UserID: &user, Action: models.ActionCallInitiated, ResourceType: "call", Success: true})
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	svc.Record(ctx, models.AuditEntry{UserID: &user, Action: models.ActionCallEnded, ResourceType: "call", Success: true})

	entries, err := svc.ByUser(ctx, user, nil, &cutoff, nil, false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionCallEnded, entries[0].Action)

	entries, err = svc.ByUser(ctx, user, nil, nil, &cutoff, false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionCallInitiated, entries[0].Action)
}

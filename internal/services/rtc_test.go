package services

import (
	"context"
	"testing"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRTCToken_IssueForParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rtc := NewRTCTokenService(f.trust, "app-1", "rtc-secret", time.Hour, zap.NewNop().Sugar())

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	token, err := rtc.Issue(ctx, res.CallID, bob)
	require.NoError(t, err)
	require.Equal(t, res.CallID, token.Channel)
	require.Equal(t, bob, token.UID)
	require.Equal(t, "app-1", token.AppID)

	// the signed token round-trips with the issuing secret
	parsed, err := jwt.Parse(token.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("rtc-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, res.CallID, claims["channel"])
	require.Equal(t, float64(bob), claims["uid"])
}

func TestRTCToken_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rtc := NewRTCTokenService(f.trust, "app-1", "rtc-secret", time.Hour, zap.NewNop().Sugar())

	res, err := f.trust.Initiate(ctx, alice, bob, "")
	require.NoError(t, err)

	_, err = rtc.Issue(ctx, "no-such-call", alice)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = rtc.Issue(ctx, res.CallID, carol)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

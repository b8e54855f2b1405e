package services

import (
	"context"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// RTCTokenService issues signed join tokens for the external media provider.
// The call_id doubles as the channel name; the provider is opaque to the trust
// engine beyond that. Only call participants may obtain a token.
type RTCTokenService struct {
	trust  *TrustService
	appID  string
	secret []byte
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRTCTokenService creates a token issuer for the media provider.
func NewRTCTokenService(trust *TrustService, appID, secret string, ttl time.Duration, logger *zap.SugaredLogger) *RTCTokenService {
	return &RTCTokenService{trust: trust, appID: appID, secret: []byte(secret), ttl: ttl, logger: logger}
}

// RTCToken is the signed channel credential handed to a client.
type RTCToken struct {
	Token     string    `json:"token"`
	AppID     string    `json:"app_id"`
	Channel   string    `json:"channel_name"`
	UID       int64     `json:"uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue signs a channel join token for actorID on the call's channel.
func (s *RTCTokenService) Issue(ctx context.Context, callID string, actorID int64) (*RTCToken, error) {
	session, err := s.trust.Session(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !session.Participant(actorID) {
		return nil, errs.ErrForbidden
	}

	expiresAt := time.Now().Add(s.ttl)
	claims := jwt.MapClaims{
		"app_id":  s.appID,
		"channel": callID,
		"uid":     actorID,
		"role":    "publisher",
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("rtc token issued", "call_id", callID, "uid", actorID)
	return &RTCToken{
		Token:     signed,
		AppID:     s.appID,
		Channel:   callID,
		UID:       actorID,
		ExpiresAt: expiresAt,
	}, nil
}

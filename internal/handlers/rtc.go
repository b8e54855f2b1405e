package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/eazylink/calltrust-server/internal/middleware"
	"github.com/eazylink/calltrust-server/internal/services"
	"go.uber.org/zap"
)

// RTCHandler issues media-provider channel tokens to call participants.
type RTCHandler struct {
	rtc    *services.RTCTokenService
	logger *zap.SugaredLogger
}

// NewRTCHandler creates a new RTC token handler.
func NewRTCHandler(rtc *services.RTCTokenService, logger *zap.SugaredLogger) *RTCHandler {
	return &RTCHandler{rtc: rtc, logger: logger}
}

type rtcTokenRequest struct {
	CallID string `json:"call_id"`
}

// Token handles POST /api/v1/rtc/token
func (h *RTCHandler) Token(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req rtcTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CallID == "" {
		respondError(w, http.StatusBadRequest, "call_id is required")
		return
	}

	token, err := h.rtc.Issue(r.Context(), req.CallID, actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, token)
}

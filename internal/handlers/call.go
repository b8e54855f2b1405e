package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eazylink/calltrust-server/internal/middleware"
	"github.com/eazylink/calltrust-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CallHandler exposes the call session lifecycle and verification protocol.
type CallHandler struct {
	trust  *services.TrustService
	report *services.ReportService
	logger *zap.SugaredLogger
}

// NewCallHandler creates a new call handler.
func NewCallHandler(trust *services.TrustService, report *services.ReportService, logger *zap.SugaredLogger) *CallHandler {
	return &CallHandler{trust: trust, report: report, logger: logger}
}

type initiateRequest struct {
	ReceiverID int64 `json:"receiver_id"`
}

type confirmRequest struct {
	Code string `json:"code"`
}

type endRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

type reportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Initiate handles POST /api/v1/calls/initiate
func (h *CallHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.trust.Initiate(r.Context(), actorID, req.ReceiverID, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Code handles GET /api/v1/calls/{callID}/verification-code
func (h *CallHandler) Code(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	code, expiresAt, err := h.trust.GetCode(r.Context(), callID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":       code,
		"expires_at": expiresAt,
	})
}

// Confirm handles POST /api/v1/calls/{callID}/confirm-code
func (h *CallHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.trust.Confirm(r.Context(), chi.URLParam(r, "callID"), actorID, req.Code, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Code confirmed",
		"is_verified": session.IsVerified,
		"status":      session.Status,
	})
}

// End handles POST /api/v1/calls/{callID}/end
func (h *CallHandler) End(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DurationSeconds < 0 {
		respondError(w, http.StatusBadRequest, "duration_seconds must not be negative")
		return
	}

	session, err := h.trust.End(r.Context(), chi.URLParam(r, "callID"), actorID, req.DurationSeconds, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Call ended",
		"call_id":          session.CallID,
		"duration_seconds": session.DurationSeconds,
		"status":           session.Status,
	})
}

// Report handles POST /api/v1/calls/{callID}/report
func (h *CallHandler) Report(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.report.File(r.Context(), chi.URLParam(r, "callID"), actorID, req.Reason, req.Description, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Call reported",
		"report_id": report.ID,
		"reason":    report.Reason,
		"status":    report.Status,
	})
}

// History handles GET /api/v1/calls/history
func (h *CallHandler) History(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	calls, err := h.trust.History(r.Context(), actorID, limit, offset)
	if err != nil {
		h.logger.Errorw("fetch call history failed", "actor_id", actorID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"calls": calls,
		"total": len(calls),
	})
}

// clientIP returns the remote address for audit entries. RealIP middleware
// has already resolved forwarding headers.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eazylink/calltrust-server/internal/models"
	"github.com/eazylink/calltrust-server/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuditHandler exposes the investigation endpoints over the event ledger.
type AuditHandler struct {
	audit   *services.AuditService
	reports *services.ReportService
	logger  *zap.SugaredLogger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit *services.AuditService, reports *services.ReportService, logger *zap.SugaredLogger) *AuditHandler {
	return &AuditHandler{audit: audit, reports: reports, logger: logger}
}

// ByUser handles GET /api/v1/audit/user/{userID}
// Query params: action, from, to (RFC3339), order=asc|desc, limit.
func (h *AuditHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	action, ok := parseAction(r.URL.Query().Get("action"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	from, to, ok := parseTimeRange(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid time range, use RFC3339")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	descending := r.URL.Query().Get("order") != "asc"

	entries, err := h.audit.ByUser(r.Context(), userID, action, from, to, descending, limit)
	if err != nil {
		h.logger.Errorw("audit query failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to query audit log")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Recent handles GET /api/v1/audit/recent
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	action, ok := parseAction(r.URL.Query().Get("action"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.audit.Recent(r.Context(), action, limit)
	if err != nil {
		h.logger.Errorw("recent audit query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to query audit log")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// ReportsAgainstUser handles GET /api/v1/audit/reports/{userID}
func (h *AuditHandler) ReportsAgainstUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.reports.AgainstUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Errorw("reports query failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to query reports")
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

func parseAction(raw string) (*models.AuditAction, bool) {
	if raw == "" {
		return nil, true
	}
	action := models.AuditAction(raw)
	if !action.Valid() {
		return nil, false
	}
	return &action, true
}

func parseTimeRange(r *http.Request) (from, to *time.Time, ok bool) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, false
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

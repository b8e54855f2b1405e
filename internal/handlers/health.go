package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eazylink/calltrust-server/internal/models"
	"go.uber.org/zap"
)

var startTime = time.Now()

const version = "1.2.0"

// Pinger is the readiness probe surface of the record store.
// *pgxpool.Pool satisfies it; the memory backend uses a no-op.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NoopPinger is always ready; used with the memory backend.
type NoopPinger struct{}

// Ping reports readiness unconditionally.
func (NoopPinger) Ping(context.Context) error { return nil }

// HealthHandler provides health check endpoints
type HealthHandler struct {
	db     Pinger
	logger *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Check handles GET /api/v1/health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:   "not ready",
			Version:  version,
			Database: "disconnected",
		})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:   "ready",
		Version:  version,
		Uptime:   time.Since(startTime).String(),
		Database: "connected",
	})
}

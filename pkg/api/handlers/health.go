package handlers

import (
	"net/http"

	"github.com/marmos91/flushwatch/pkg/flusher"
)

// StatusProvider exposes the flush scheduler state. *flusher.Manager
// implements it.
type StatusProvider interface {
	Status() flusher.Status
	Running() bool
	Err() error
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the process serving HTTP?
//   - Readiness probe: Is the flush watcher running?
type HealthHandler struct {
	scheduler StatusProvider
}

// NewHealthHandler creates a new health handler.
//
// The scheduler may be nil, in which case readiness reports unhealthy.
func NewHealthHandler(scheduler StatusProvider) *HealthHandler {
	return &HealthHandler{scheduler: scheduler}
}

// Liveness handles GET /health. It always succeeds while the HTTP server
// is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "flushwatch",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 Service Unavailable when the scheduler is missing, has not
// started, or its watcher stopped on a fatal error.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("scheduler not initialized"))
		return
	}

	if err := h.scheduler.Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	if !h.scheduler.Running() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("flush watcher not running"))
		return
	}

	status := h.scheduler.Status()
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"caches":        len(status.Caches),
		"scan_interval": status.ScanInterval.String(),
		"pending":       status.Pending,
	}))
}

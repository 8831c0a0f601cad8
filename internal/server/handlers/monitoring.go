package handlers

import (
	"log/slog"
	"net/http"
	"time"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/server/responses"
	"git.home.luguber.info/inful/repodoc/internal/version"
)

// MonitoringHandlers serves the root descriptor and the health endpoint.
type MonitoringHandlers struct {
	store jobs.Store
	queue jobs.Queue
}

// NewMonitoringHandlers creates the monitoring endpoints.
func NewMonitoringHandlers(store jobs.Store, queue jobs.Queue) *MonitoringHandlers {
	return &MonitoringHandlers{store: store, queue: queue}
}

// HandleRoot describes the service and its endpoints.
func (h *MonitoringHandlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	resp := responses.RootResponse{
		Message: "repodoc API",
		Version: version.Version,
		Endpoints: map[string]string{
			"analyze": "/api/analyze",
			"status":  "/api/status/{job_id}",
			"result":  "/api/result/{job_id}",
			"docs":    "/api/docs/{job_id}/{path}",
			"health":  "/api/health",
			"metrics": "/metrics",
		},
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("Failed to write root response", logfields.Error(err))
	}
}

// HandleHealth reports store and queue reachability. A probe lookup that
// answers not_found still proves the store is reachable.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "healthy"
	if _, err := h.store.Get(r.Context(), "health-probe"); err != nil {
		if rderrors.GetCategory(err) != rderrors.CategoryNotFound {
			storeStatus = "unhealthy"
		}
	}

	queueStatus := "healthy"
	if h.queue.Depth() < 0 {
		queueStatus = "unhealthy"
	}

	overall := "healthy"
	status := http.StatusOK
	if storeStatus != "healthy" || queueStatus != "healthy" {
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	resp := responses.HealthResponse{
		Status:    overall,
		Queue:     queueStatus,
		Store:     storeStatus,
		Timestamp: time.Now().UTC(),
	}
	if err := writeJSON(w, status, resp); err != nil {
		slog.Error("Failed to write health response", logfields.Error(err))
	}
}

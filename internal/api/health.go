package api

import (
	"context"
	"net/http"
	"time"

	"github.com/casamack/tibber-refiner/internal/scheduler"
)

// healthCheckTimeout bounds the time spent on all component checks.
const healthCheckTimeout = 5 * time.Second

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Components    map[string]string `json:"components"`
	Scheduler     *scheduler.Status `json:"scheduler,omitempty"`
}

// handleHealth reports the health of every registered component.
// Any failing component makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Components:    make(map[string]string, len(s.checks)),
	}

	for _, c := range s.checks {
		if err := c.Checker.HealthCheck(ctx); err != nil {
			resp.Components[c.Name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Components[c.Name] = "ok"
	}

	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

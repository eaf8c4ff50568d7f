package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// healthCheckTimeout bounds each component probe made by /api/health.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	// Components maps each checked component to "ok" or its error text.
	Components map[string]string `json:"components"`
}

// handleHealth reports "ok" when the database and every configured
// optional component answer, otherwise "degraded" with 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]HealthChecker, len(s.checks)+1)
	for name, c := range s.checks {
		checks[name] = c
	}
	checks["database"] = s.db

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     "ok",
		Version:    s.version,
		Components: make(map[string]string, len(checks)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checks[name].HealthCheck(ctx)
		cancel()

		if err != nil {
			resp.Status = "degraded"
			resp.Components[name] = err.Error()
			s.logger.Warn("health check failed", "component", name, "error", err)
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleEnergy returns the current power draw summary.
func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	report, err := s.devices.Energy(r.Context())
	if err != nil {
		s.logger.Error("computing energy summary failed", "error", err)
		writeInternalError(w, "Failed to fetch energy data", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kompromat/kompromat/pkg/metrics"
)

const readyProbeTimeout = 2 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements /health. The process is alive if it answers;
// component states are reported but do not fail the check.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := metrics.GetHealth()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Version:    s.opts.Version,
		Components: health.Components,
	})
}

// readyHandler implements /ready. It probes the key store directly and
// folds in the registered critical components.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true
	var message string

	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	if initialized, err := s.vault.Store().Initialized(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("error: %v", err)
		ready = false
		message = "Storage not accessible"
		metrics.UpdateComponent(metrics.ComponentStore, false, err.Error())
	} else {
		checks["storage"] = "ok"
		checks["vault"] = "not initialized"
		if initialized {
			checks["vault"] = "initialized"
		}
		metrics.UpdateComponent(metrics.ComponentStore, true, "")
	}

	readiness := metrics.GetReadiness()
	for name, state := range readiness.Components {
		if name == metrics.ComponentStore {
			continue
		}
		checks[name] = state
	}
	if readiness.Status != "ready" && ready {
		ready = false
		message = readiness.Message
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	})
}

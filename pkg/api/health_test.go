package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealthHandler tests the /health endpoint
func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, Options{Version: "test"})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{
			name:           "GET request succeeds",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "POST request fails",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "DELETE request fails",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, "/health", nil, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

				var response HealthResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "test", response.Version)
				assert.False(t, response.Timestamp.IsZero())
			}
		})
	}
}

// TestReadyHandler tests readiness with a reachable store
func TestReadyHandler(t *testing.T) {
	s := newTestServer(t, Options{})
	metrics.RegisterComponent(metrics.ComponentAPI, true, "")

	w := do(t, s, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, "ok", response.Checks["storage"])
	assert.Equal(t, "not initialized", response.Checks["vault"])
	assert.Equal(t, "ready", response.Checks[metrics.ComponentAPI])

	initialize(t, s, "000000")
	w = do(t, s, http.MethodGet, "/ready", nil, nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "initialized", response.Checks["vault"])
}

// TestReadyHandlerAPINotServing tests readiness before the listener is up
func TestReadyHandlerAPINotServing(t *testing.T) {
	s := newTestServer(t, Options{})
	metrics.RegisterComponent(metrics.ComponentAPI, false, "shutting down")
	t.Cleanup(func() { metrics.RegisterComponent(metrics.ComponentAPI, true, "") })

	w := do(t, s, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "ok", response.Checks["storage"])
	assert.Contains(t, response.Checks[metrics.ComponentAPI], "shutting down")
	assert.NotEmpty(t, response.Message)
}

// TestOperationalRoutes tests that the operational endpoints are registered
func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t, Options{})
	metrics.RegisterComponent(metrics.ComponentAPI, true, "")

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{path: "/health", expectedStatus: http.StatusOK},
		{path: "/live", expectedStatus: http.StatusOK},
		{path: "/ready", expectedStatus: http.StatusOK},
		{path: "/metrics", expectedStatus: http.StatusOK},
		{path: "/nonexistent", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Path: %s", tt.path)
		})
	}
}

package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// readyPath is the readiness endpoint served by the API
const readyPath = "/ready"

// HTTPChecker probes the readiness endpoint of a running server
type HTTPChecker struct {
	// URL is the full readiness URL (e.g., "http://127.0.0.1:8080/ready")
	URL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewHTTPChecker creates a checker for the server at baseURL
func NewHTTPChecker(baseURL string) *HTTPChecker {
	return &HTTPChecker{
		URL: strings.TrimRight(baseURL, "/") + readyPath,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// readyBody mirrors the JSON the readiness endpoint returns
type readyBody struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Message string            `json:"message"`
}

// Check performs the readiness probe
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()
	fail := func(format string, args ...any) Result {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf(format, args...),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return fail("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return fail("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body readyBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fail("HTTP %d %s: unreadable body: %v", resp.StatusCode, http.StatusText(resp.StatusCode), err)
	}

	message := body.Message
	if message == "" {
		message = fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return Result{
		Healthy:   resp.StatusCode == http.StatusOK,
		Status:    body.Status,
		Message:   message,
		Checks:    body.Checks,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

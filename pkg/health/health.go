// Package health probes a running Kompromat server.
package health

import (
	"context"
	"time"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Status    string
	Message   string
	Checks    map[string]string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result
}

// Config controls how often a failing server is probed again
type Config struct {
	// Timeout is the maximum time to wait for one probe
	Timeout time.Duration

	// Retries is the number of probes before giving up
	Retries int

	// Interval is the pause between probes
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:  5 * time.Second,
		Retries:  1,
		Interval: time.Second,
	}
}

// Wait probes until the checker reports healthy, retries run out or ctx is
// done. It returns the last result.
func Wait(ctx context.Context, checker Checker, cfg Config) Result {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}

	var result Result
	for attempt := 1; attempt <= retries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		result = checker.Check(probeCtx)
		cancel()

		if result.Healthy || attempt == retries {
			return result
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(cfg.Interval):
		}
	}
	return result
}

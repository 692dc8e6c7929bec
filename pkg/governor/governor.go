package governor

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/rs/zerolog"
)

const (
	// DefaultCapacity is the number of clients tracked at once
	DefaultCapacity = 1000

	// DefaultTTL is how long a client's failure count is remembered
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultThreshold is the failure count at which a client is blocked
	DefaultThreshold = 7
)

// Config configures a LoginGovernor
type Config struct {
	Capacity  int
	TTL       time.Duration
	Threshold int
}

// DefaultConfig returns the default governor settings
func DefaultConfig() Config {
	return Config{
		Capacity:  DefaultCapacity,
		TTL:       DefaultTTL,
		Threshold: DefaultThreshold,
	}
}

// Validate checks the governor settings
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("governor capacity must be positive, got %d", c.Capacity)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("governor ttl must be positive, got %s", c.TTL)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("governor threshold must be positive, got %d", c.Threshold)
	}
	return nil
}

// LoginGovernor counts failed authentication attempts per client and blocks
// clients that reach the threshold. Counters live in a bounded LRU with a
// per-entry TTL, so memory stays flat under an address-rotating attacker and
// blocks lapse on their own.
type LoginGovernor struct {
	// mu serializes read-modify-write of a counter
	mu        sync.Mutex
	failures  *expirable.LRU[string, int]
	threshold int
	logger    zerolog.Logger
}

// New creates a login governor
func New(cfg Config) (*LoginGovernor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &LoginGovernor{
		failures:  expirable.NewLRU[string, int](cfg.Capacity, nil, cfg.TTL),
		threshold: cfg.Threshold,
		logger:    log.WithComponent("governor"),
	}, nil
}

// IsBlocked reports whether clientID has reached the failure threshold
func (g *LoginGovernor) IsBlocked(clientID string) bool {
	count, ok := g.failures.Get(clientID)
	if !ok {
		return false
	}
	return count > g.threshold-1
}

// RecordFailure increments the failure count for clientID. The lookup does
// not refresh recency; the write resets the entry's TTL.
func (g *LoginGovernor) RecordFailure(clientID string) {
	g.mu.Lock()
	count, _ := g.failures.Peek(clientID)
	count++
	g.failures.Add(clientID, count)
	g.mu.Unlock()

	if count == g.threshold {
		metrics.BlockedClientsTotal.Inc()
		g.logger.Warn().
			Str("client_id", clientID).
			Int("failures", count).
			Msg("Client blocked after repeated authentication failures")
	}
}

// Reset forgets every tracked client
func (g *LoginGovernor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures.Purge()
}

// Len returns the number of tracked clients
func (g *LoginGovernor) Len() int {
	return g.failures.Len()
}

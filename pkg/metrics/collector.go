package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StateSource exposes the counts the collector turns into gauges
type StateSource interface {
	CountAccessCards(ctx context.Context) (int, error)
	CountTokens(ctx context.Context) (int, error)
}

// Collector periodically refreshes vault gauges
type Collector struct {
	source   StateSource
	tracked  func() int
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector. tracked reports how many
// clients the login governor currently tracks; it may be nil.
func NewCollector(source StateSource, tracked func() int, interval time.Duration, logger zerolog.Logger) *Collector {
	return &Collector{
		source:   source,
		tracked:  tracked,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect(context.Background())

		for {
			select {
			case <-ticker.C:
				c.Collect(context.Background())
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect refreshes all gauges once
func (c *Collector) Collect(ctx context.Context) {
	if n, err := c.source.CountAccessCards(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to count access cards")
	} else {
		AccessCardsTotal.Set(float64(n))
	}

	if n, err := c.source.CountTokens(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to count tokens")
	} else {
		TokensActive.Set(float64(n))
	}

	if c.tracked != nil {
		GovernorTrackedClients.Set(float64(c.tracked()))
	}
}

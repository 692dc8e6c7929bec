// Package reaper removes expired session tokens on a timer.
package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/rs/zerolog"
)

// DefaultInterval is how often expired tokens are swept
const DefaultInterval = 5 * time.Minute

// Sweeper removes expired session state
type Sweeper interface {
	SweepExpiredTokens(ctx context.Context) (int, error)
}

// Reaper periodically sweeps expired tokens. Token expiry is enforced on
// every validation; the reaper only keeps the store from accumulating
// tokens that are never presented again.
type Reaper struct {
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a reaper
func New(sweeper Sweeper, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		sweeper:  sweeper,
		interval: interval,
		logger:   log.WithComponent("reaper"),
	}
}

// Start begins the sweep loop. The first sweep runs immediately.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	metrics.RegisterComponent(metrics.ComponentReaper, true, "starting")
	go r.run(r.stopCh, r.doneCh)
}

// Stop stops the loop and waits for an in-flight sweep to finish
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

func (r *Reaper) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-stopCh:
			return
		}
	}
}

// Sweep runs one sweep cycle
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.SweepDuration)
		metrics.SweepCyclesTotal.Inc()
	}()

	removed, err := r.sweeper.SweepExpiredTokens(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("Failed to sweep expired tokens")
			metrics.UpdateComponent(metrics.ComponentReaper, false, err.Error())
		}
		return 0, err
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("Swept expired tokens")
	} else {
		r.logger.Debug().Msg("No expired tokens to sweep")
	}
	metrics.UpdateComponent(metrics.ComponentReaper, true, fmt.Sprintf("last sweep removed %d tokens", removed))
	return removed, nil
}

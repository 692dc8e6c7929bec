package governor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGovernor(t *testing.T) *LoginGovernor {
	t.Helper()
	g, err := New(DefaultConfig())
	require.NoError(t, err)
	return g
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "zero capacity", cfg: Config{Capacity: 0, TTL: time.Hour, Threshold: 7}, wantErr: true},
		{name: "zero ttl", cfg: Config{Capacity: 10, TTL: 0, Threshold: 7}, wantErr: true},
		{name: "negative threshold", cfg: Config{Capacity: 10, TTL: time.Hour, Threshold: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeventhFailureBlocks(t *testing.T) {
	g := newTestGovernor(t)

	for i := 1; i < DefaultThreshold; i++ {
		g.RecordFailure("10.0.0.1")
		assert.False(t, g.IsBlocked("10.0.0.1"), "blocked after %d failures", i)
	}

	g.RecordFailure("10.0.0.1")
	assert.True(t, g.IsBlocked("10.0.0.1"))
	assert.False(t, g.IsBlocked("10.0.0.2"), "other clients are unaffected")

	g.Reset()
	assert.False(t, g.IsBlocked("10.0.0.1"))
	assert.Zero(t, g.Len())
}

func TestConcurrentFailuresAreAllCounted(t *testing.T) {
	g := newTestGovernor(t)

	const workers = 200
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			g.RecordFailure("10.0.0.1")
		}()
	}
	close(start)
	wg.Wait()

	count, ok := g.failures.Peek("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, workers, count)
	assert.True(t, g.IsBlocked("10.0.0.1"))
}

func TestUnknownClientIsNotBlocked(t *testing.T) {
	g := newTestGovernor(t)
	assert.False(t, g.IsBlocked("never-seen"))
}

func TestFailuresExpire(t *testing.T) {
	g, err := New(Config{Capacity: 10, TTL: 50 * time.Millisecond, Threshold: 1})
	require.NoError(t, err)

	g.RecordFailure("x")
	require.True(t, g.IsBlocked("x"))

	assert.Eventually(t, func() bool {
		return !g.IsBlocked("x")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCapacityEvictsOldestClient(t *testing.T) {
	g, err := New(Config{Capacity: 3, TTL: time.Hour, Threshold: 1})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		g.RecordFailure(fmt.Sprintf("client-%d", i))
	}

	assert.Equal(t, 3, g.Len())
	assert.False(t, g.IsBlocked("client-0"), "oldest entry was evicted")
	assert.True(t, g.IsBlocked("client-3"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kompromat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 14*24*time.Hour, cfg.AuthLogRetention)
	assert.Equal(t, 1000, cfg.Governor.Capacity)
	assert.Equal(t, 7, cfg.Governor.Threshold)
	assert.False(t, cfg.Governor.TrustForwardedFor)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: 0.0.0.0:9000
data_dir: /var/lib/kompromat
token_ttl: 10m
store:
  backend: bolt
log:
  level: debug
  json: true
governor:
  threshold: 3
  trust_forwarded_for: true
  trusted_proxies:
    - 10.0.0.0/8
    - 127.0.0.1
rate_limit:
  requests_per_second: 2.5
  burst: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/kompromat", cfg.DataDir)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "bolt", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 3, cfg.Governor.Threshold)
	assert.Equal(t, 1000, cfg.Governor.Capacity, "unset keys keep defaults")
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Governor.TrustedProxies)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)

	assert.Equal(t, 10*time.Minute, cfg.VaultOptions().TokenTTL)
	assert.Equal(t, 3, cfg.GovernorSettings().Threshold)
	assert.True(t, cfg.LogSettings().JSONOutput)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "listen_adr: :8080\n"},
		{name: "bad backend", content: "store:\n  backend: redis\n"},
		{name: "bad duration", content: "token_ttl: soon\n"},
		{name: "zero ttl", content: "token_ttl: 0s\n"},
		{name: "bad log level", content: "log:\n  level: loud\n"},
		{name: "bad proxy", content: "governor:\n  trusted_proxies: [nope]\n"},
		{name: "zero burst", content: "rate_limit:\n  requests_per_second: 1\n  burst: 0\n"},
		{name: "bad kdf", content: "kdf:\n  threads: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

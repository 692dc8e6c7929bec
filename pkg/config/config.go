// Package config loads the server configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kompromat/kompromat/pkg/governor"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/reaper"
	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/vault"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration, usually loaded from kompromat.yaml
type Config struct {
	ListenAddr       string        `yaml:"listen_addr"`
	DataDir          string        `yaml:"data_dir"`
	StaticDir        string        `yaml:"static_dir"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	AuthLogRetention time.Duration `yaml:"auth_log_retention"`

	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Governor  GovernorConfig  `yaml:"governor"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	KDF       KDFConfig       `yaml:"kdf"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type GovernorConfig struct {
	Capacity          int           `yaml:"capacity"`
	TTL               time.Duration `yaml:"ttl"`
	Threshold         int           `yaml:"threshold"`
	TrustForwardedFor bool          `yaml:"trust_forwarded_for"`
	TrustedProxies    []string      `yaml:"trusted_proxies"`
}

// RateLimitConfig sets the per-client token bucket. A zero rate disables
// rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type KDFConfig struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

// Default returns the built-in configuration
func Default() *Config {
	kdf := security.DefaultKDFParams()
	gov := governor.DefaultConfig()

	return &Config{
		ListenAddr:       "127.0.0.1:8080",
		DataDir:          "./data",
		TokenTTL:         vault.DefaultTokenTTL,
		SweepInterval:    reaper.DefaultInterval,
		AuthLogRetention: vault.DefaultAuthLogRetention,
		Store:            StoreConfig{Backend: storage.BackendFile},
		Log: LogConfig{
			Level:      string(log.InfoLevel),
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Governor: GovernorConfig{
			Capacity:  gov.Capacity,
			TTL:       gov.TTL,
			Threshold: gov.Threshold,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		KDF: KDFConfig{
			Time:      kdf.Time,
			MemoryKiB: kdf.MemoryKiB,
			Threads:   kdf.Threads,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// decode applies YAML over the current values, rejecting unknown keys
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Store.Backend {
	case storage.BackendFile, storage.BackendBolt:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", storage.BackendFile, storage.BackendBolt, c.Store.Backend)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.AuthLogRetention <= 0 {
		return fmt.Errorf("auth_log_retention must be positive")
	}

	switch log.Level(c.Log.Level) {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if err := c.GovernorSettings().Validate(); err != nil {
		return err
	}
	if _, err := governor.NewClientResolver(c.Governor.TrustForwardedFor, c.Governor.TrustedProxies); err != nil {
		return err
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1 when rate limiting is enabled")
	}

	if err := c.KDFParams().Validate(); err != nil {
		return err
	}
	return nil
}

// VaultOptions returns the vault settings
func (c *Config) VaultOptions() vault.Options {
	return vault.Options{
		TokenTTL:         c.TokenTTL,
		AuthLogRetention: c.AuthLogRetention,
		KDF:              c.KDFParams(),
	}
}

// GovernorSettings returns the login governor settings
func (c *Config) GovernorSettings() governor.Config {
	return governor.Config{
		Capacity:  c.Governor.Capacity,
		TTL:       c.Governor.TTL,
		Threshold: c.Governor.Threshold,
	}
}

// KDFParams returns the argon2id parameters
func (c *Config) KDFParams() security.KDFParams {
	return security.KDFParams{
		Time:      c.KDF.Time,
		MemoryKiB: c.KDF.MemoryKiB,
		Threads:   c.KDF.Threads,
	}
}

// LogSettings returns the logger settings
func (c *Config) LogSettings() log.Config {
	return log.Config{
		Level:      log.Level(c.Log.Level),
		JSONOutput: c.Log.JSON,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

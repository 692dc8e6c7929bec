package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/kompromat/kompromat/pkg/events"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultTokenTTL is the lifetime of a session token
	DefaultTokenTTL = 5 * time.Minute

	// DefaultAuthLogRetention is how long authentication log entries are kept
	DefaultAuthLogRetention = 14 * 24 * time.Hour

	// DefaultCardName names the card created by InitializeVault
	DefaultCardName = "Default Access Card"

	cardSecretBytes  = 26
	tokenIDBytes     = 32
	tokenSecretBytes = 32
	saltBytes        = 16
)

// Governor is the brute-force guard consulted by every entry point
type Governor interface {
	IsBlocked(clientID string) bool
	RecordFailure(clientID string)
}

// Options tunes a Vault
type Options struct {
	TokenTTL         time.Duration
	AuthLogRetention time.Duration
	KDF              security.KDFParams
}

// DefaultOptions returns the production vault settings
func DefaultOptions() Options {
	return Options{
		TokenTTL:         DefaultTokenTTL,
		AuthLogRetention: DefaultAuthLogRetention,
		KDF:              security.DefaultKDFParams(),
	}
}

// Option customizes a Vault
type Option func(*Vault)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		v.now = now
	}
}

// WithEvents publishes vault events to p
func WithEvents(p events.Publisher) Option {
	return func(v *Vault) {
		v.events = p
	}
}

// Vault owns access cards and sessions. Every mutation goes through one
// KeyStore batch so card and token changes never interleave.
type Vault struct {
	store    *storage.KeyStore
	governor Governor
	cipher   *security.Cipher
	kdf      *security.CardKDF
	events   events.Publisher
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger

	// dummySalt feeds the derivation run for unknown card ids
	dummySalt []byte
}

// New creates a vault over store
func New(store *storage.KeyStore, governor Governor, opts Options, options ...Option) (*Vault, error) {
	if opts.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", opts.TokenTTL)
	}
	if opts.AuthLogRetention <= 0 {
		return nil, fmt.Errorf("authentication log retention must be positive, got %s", opts.AuthLogRetention)
	}

	kdf, err := security.NewCardKDF(opts.KDF)
	if err != nil {
		return nil, fmt.Errorf("invalid kdf parameters: %w", err)
	}

	dummySalt, err := security.RandomBytes(saltBytes)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		store:     store,
		governor:  governor,
		cipher:    security.NewCipher(),
		kdf:       kdf,
		opts:      opts,
		now:       time.Now,
		logger:    log.WithComponent("vault"),
		dummySalt: dummySalt,
	}
	for _, opt := range options {
		opt(v)
	}

	return v, nil
}

// Store returns the underlying key store
func (v *Vault) Store() *storage.KeyStore {
	return v.store
}

// Cipher returns the cipher used for wrapping
func (v *Vault) Cipher() *security.Cipher {
	return v.cipher
}

// Now returns the vault's current time
func (v *Vault) Now() time.Time {
	return v.now()
}

// Status reports whether the vault has been initialized
func (v *Vault) Status(ctx context.Context, clientID string) (bool, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return false, err
	}
	return v.store.Initialized(ctx)
}

// checkBlocked rejects blocked clients before any credential work
func (v *Vault) checkBlocked(clientID string) error {
	if v.governor.IsBlocked(clientID) {
		metrics.BlockedRequestsTotal.Inc()
		return ErrNotAuthenticated
	}
	return nil
}

// reject records a credential failure for clientID and returns the uniform
// error. reason is only logged.
func (v *Vault) reject(clientID, reason string) error {
	v.governor.RecordFailure(clientID)
	v.logger.Debug().Str("client_id", clientID).Str("reason", reason).Msg("Credential check failed")
	v.publish(events.EventAuthFailed, "authentication failed", map[string]string{"client_id": clientID})
	return ErrNotAuthenticated
}

func (v *Vault) publish(t events.EventType, msg string, metadata map[string]string) {
	if v.events == nil {
		return
	}
	v.events.Publish(&events.Event{
		Type:      t,
		Timestamp: v.now(),
		Message:   msg,
		Metadata:  metadata,
	})
}

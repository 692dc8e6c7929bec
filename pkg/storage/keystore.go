package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/kompromat/kompromat/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// KeyStore serializes every mutation of the vault document behind a single
// FIFO lock. Readers load a snapshot without the lock; the backends guarantee
// a reader never sees a half-written document.
type KeyStore struct {
	backend Backend
	lock    *semaphore.Weighted
	logger  zerolog.Logger
}

// NewKeyStore creates a key store over the given backend
func NewKeyStore(backend Backend) *KeyStore {
	return &KeyStore{
		backend: backend,
		lock:    semaphore.NewWeighted(1),
		logger:  log.WithComponent("keystore").With().Str("backend", backend.Name()).Logger(),
	}
}

// Close closes the backend
func (s *KeyStore) Close() error {
	return s.backend.Close()
}

// View loads the current document and passes it to fn. Changes fn makes to
// the document are discarded.
func (s *KeyStore) View(ctx context.Context, fn func(doc *Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StoreOperationDuration, "view")

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// Update is the atomic batch: it loads the document, applies fn and persists
// the result while holding the store lock. Waiters are served in arrival
// order. If fn returns an error nothing is written. The lock is released on
// every exit path.
func (s *KeyStore) Update(ctx context.Context, fn func(doc *Document) error) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.StoreOperationDuration, "update")

	if err := s.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}
	defer s.lock.Release(1)

	unlock, err := s.backend.Lock(ctx)
	if err != nil {
		return s.fatal("lock", err)
	}
	defer unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		return err
	}

	return s.save(doc)
}

// Clear replaces the document with an empty one
func (s *KeyStore) Clear(ctx context.Context) error {
	return s.Update(ctx, func(doc *Document) error {
		*doc = *NewDocument()
		return nil
	})
}

func (s *KeyStore) load() (*Document, error) {
	data, err := s.backend.Load()
	if err != nil {
		return nil, s.fatal("read", err)
	}

	doc := &Document{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, s.fatal("decode", err)
		}
	}
	doc.normalize()
	return doc, nil
}

func (s *KeyStore) save(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return s.fatal("encode", err)
	}
	if err := s.backend.Save(data); err != nil {
		return s.fatal("write", err)
	}
	return nil
}

func (s *KeyStore) fatal(op string, err error) error {
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	s.logger.Error().Err(err).Str("op", op).Msg("Store operation failed")
	return fmt.Errorf("%w: %s: %w", ErrStoreFatal, op, err)
}

// Initialized reports whether the vault was ever initialized
func (s *KeyStore) Initialized(ctx context.Context) (bool, error) {
	var initialized bool
	err := s.View(ctx, func(doc *Document) error {
		initialized = doc.Meta.HasInitialized
		return nil
	})
	return initialized, err
}

// Access card operations
func (s *KeyStore) GetAccessCard(ctx context.Context, id string) (*types.AccessCard, error) {
	var card *types.AccessCard
	err := s.View(ctx, func(doc *Document) error {
		c, ok := doc.AccessCards[id]
		if !ok {
			return fmt.Errorf("access card %w: %s", ErrNotFound, id)
		}
		card = c
		return nil
	})
	return card, err
}

func (s *KeyStore) PutAccessCard(ctx context.Context, card *types.AccessCard) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.AccessCards[card.ID] = card
		return nil
	})
}

func (s *KeyStore) DeleteAccessCard(ctx context.Context, id string) error {
	return s.Update(ctx, func(doc *Document) error {
		delete(doc.AccessCards, id)
		return nil
	})
}

func (s *KeyStore) CountAccessCards(ctx context.Context) (int, error) {
	var n int
	err := s.View(ctx, func(doc *Document) error {
		n = len(doc.AccessCards)
		return nil
	})
	return n, err
}

// Token operations
func (s *KeyStore) GetToken(ctx context.Context, id string) (*types.Token, error) {
	var token *types.Token
	err := s.View(ctx, func(doc *Document) error {
		t, ok := doc.Tokens[id]
		if !ok {
			return fmt.Errorf("token %w", ErrNotFound)
		}
		token = t
		return nil
	})
	return token, err
}

func (s *KeyStore) PutToken(ctx context.Context, token *types.Token) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.Tokens[token.ID] = token
		return nil
	})
}

func (s *KeyStore) DeleteToken(ctx context.Context, id string) error {
	return s.Update(ctx, func(doc *Document) error {
		delete(doc.Tokens, id)
		return nil
	})
}

func (s *KeyStore) CountTokens(ctx context.Context) (int, error) {
	var n int
	err := s.View(ctx, func(doc *Document) error {
		n = len(doc.Tokens)
		return nil
	})
	return n, err
}

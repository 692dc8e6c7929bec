/*
Package storage persists the Kompromat vault document and serializes every
change to it.

The whole vault (meta flags, access cards, session tokens, documents and the
authentication log) is one JSON document. It is always read and written as a
unit, which keeps multi-entity changes such as "revoke a card and every token
it issued" trivially atomic.

# Architecture

	┌──────────────────────── VAULT PROCESS ─────────────────────────┐
	│                                                                │
	│   vault / documents / reaper                                   │
	│        │  View(fn)             Update(fn)                      │
	│        ▼                          │                            │
	│  ┌───────────────────────── KeyStore ────────────────────────┐ │
	│  │  semaphore.Weighted(1)   FIFO, ctx-cancellable acquire    │ │
	│  │  load → fn(doc) → marshal → save                          │ │
	│  │  metrics: kompromat_store_operation_duration_seconds      │ │
	│  └──────────────────────────┬────────────────────────────────┘ │
	│                             │ Backend                          │
	│              ┌──────────────┴──────────────┐                   │
	│              ▼                             ▼                   │
	│       FileBackend                    BoltBackend               │
	│  kompromat.json, 0600           kompromat.db, one bucket       │
	│  temp file + fsync + rename     single bbolt transaction       │
	│  flock for other processes      bbolt's own file lock          │
	└────────────────────────────────────────────────────────────────┘

# Core Components

KeyStore:
  - View loads a snapshot without taking the lock; changes are discarded
  - Update holds the lock across load, fn and save; an fn error writes nothing
  - The lock is released by defer on every exit path, panics included
  - Waiting for the lock honours ctx; once acquired, the batch runs to the end
  - Typed helpers (GetAccessCard, PutToken, CountTokens, ...) are one-entity
    View/Update calls

Backend:
  - Load returns nil when nothing was ever saved
  - Save must be all-or-nothing
  - Lock excludes other processes (the CLI next to a running server)

Document:
  - One typed map per entity kind, keyed by id
  - normalize makes every map writable after decoding a partial document

# Errors

ErrStoreFatal marks I/O and decode failures. They are logged, counted in
kompromat_store_errors_total and returned unchanged; callers surface them as
internal errors and never retry on their own. ErrNotFound is returned by the
typed getters for absent records.

# Usage

	backend, err := storage.OpenBackend(storage.BackendFile, "/var/lib/kompromat")
	if err != nil {
		return err
	}
	store := storage.NewKeyStore(backend)
	defer store.Close()

	err = store.Update(ctx, func(doc *storage.Document) error {
		if len(doc.AccessCards) < 2 {
			return vault.ErrCannotRevokeLast
		}
		delete(doc.AccessCards, cardID)
		for id, token := range doc.Tokens {
			if token.CreatedBy == cardID {
				delete(doc.Tokens, id)
			}
		}
		return nil
	})

# Migration

Migrate copies the document between backends. It refuses to overwrite a
target that already holds a vault and supports a dry run that only reports
counts. The CLI exposes it as "kompromat migrate --from file --to bolt".

# Security

The document never contains plaintext keys: card and token entries hold the
master key wrapped under derived keys, and document fields are wrapped under
the master key. Files are created with mode 0600 inside a 0700 directory.
*/
package storage

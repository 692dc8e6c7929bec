package storage

import (
	"context"
	"errors"

	"github.com/kompromat/kompromat/pkg/types"
)

var (
	// ErrStoreFatal marks unrecoverable storage I/O or decode failures.
	// Operations failing with it are never retried automatically.
	ErrStoreFatal = errors.New("store failure")

	// ErrNotFound is returned by typed getters for absent records
	ErrNotFound = errors.New("not found")
)

// Backend persists the serialized vault document as a single blob.
// Implementations must make Save all-or-nothing: a failed Save leaves the
// previous blob readable and intact.
type Backend interface {
	// Load returns the current blob, or nil if none was ever saved
	Load() ([]byte, error)

	// Save atomically replaces the blob
	Save(data []byte) error

	// Lock excludes other processes from mutating the blob until the
	// returned func is called
	Lock(ctx context.Context) (func(), error)

	// Name identifies the backend in logs and metrics
	Name() string

	Close() error
}

// Document is the whole persisted state of a vault. Each entity kind lives in
// its own typed map; the document is always read and written as one unit.
type Document struct {
	Meta              types.Meta                          `json:"meta"`
	AccessCards       map[string]*types.AccessCard        `json:"accessCards"`
	Tokens            map[string]*types.Token             `json:"tokens"`
	Documents         map[string]*types.EncryptedDocument `json:"documents"`
	ArchivedDocuments map[string]*types.EncryptedDocument `json:"archivedDocuments"`
	AuthenticationLog []types.AuthenticationLogEntry      `json:"authenticationLog"`
}

// NewDocument returns an empty document
func NewDocument() *Document {
	d := &Document{}
	d.normalize()
	return d
}

// normalize makes every map writable after decoding a partial document
func (d *Document) normalize() {
	if d.AccessCards == nil {
		d.AccessCards = make(map[string]*types.AccessCard)
	}
	if d.Tokens == nil {
		d.Tokens = make(map[string]*types.Token)
	}
	if d.Documents == nil {
		d.Documents = make(map[string]*types.EncryptedDocument)
	}
	if d.ArchivedDocuments == nil {
		d.ArchivedDocuments = make(map[string]*types.EncryptedDocument)
	}
	if d.AuthenticationLog == nil {
		d.AuthenticationLog = []types.AuthenticationLogEntry{}
	}
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltDocumentName = "kompromat.db"

var (
	// Bucket and key holding the serialized document
	bucketVault = []byte("kompromat")
	keyDocument = []byte("document")
)

// BoltBackend stores the document blob in BoltDB. Every Save is a single
// write transaction, so readers see either the old or the new blob.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) <dataDir>/kompromat.db
func NewBoltBackend(dataDir string) (*BoltBackend, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, boltDocumentName)

	// bbolt holds an exclusive flock on the file while open
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketVault); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketVault, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db}, nil
}

// Name returns "bolt"
func (b *BoltBackend) Name() string {
	return "bolt"
}

// Load returns a copy of the stored blob
func (b *BoltBackend) Load() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketVault).Get(keyDocument)
		if v != nil {
			// bolt values are only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// Save replaces the blob in one transaction
func (b *BoltBackend) Save(data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVault).Put(keyDocument, data)
	})
}

// Lock is a no-op: the open database already excludes other processes
func (b *BoltBackend) Lock(_ context.Context) (func(), error) {
	return func() {}, nil
}

// Close closes the database
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

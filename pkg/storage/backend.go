package storage

import (
	"encoding/json"
	"fmt"
)

// Backend kinds accepted by OpenBackend
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// OpenBackend opens the named backend kind in dataDir
func OpenBackend(kind, dataDir string) (Backend, error) {
	switch kind {
	case BackendFile, "":
		return NewFileBackend(dataDir)
	case BackendBolt:
		return NewBoltBackend(dataDir)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", kind)
	}
}

// MigrateResult summarizes a migration
type MigrateResult struct {
	Bytes       int
	AccessCards int
	Tokens      int
	Documents   int
}

// Migrate copies the document from one backend to another. The source blob
// must decode as a vault document; it is written to the target verbatim.
// When dryRun is set nothing is written.
func Migrate(from, to Backend, dryRun bool) (*MigrateResult, error) {
	data, err := from.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s backend: %w", from.Name(), err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s backend holds no document", from.Name())
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("source document is corrupted: %w", err)
	}
	doc.normalize()

	result := &MigrateResult{
		Bytes:       len(data),
		AccessCards: len(doc.AccessCards),
		Tokens:      len(doc.Tokens),
		Documents:   len(doc.Documents) + len(doc.ArchivedDocuments),
	}
	if dryRun {
		return result, nil
	}

	existing, err := to.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s backend: %w", to.Name(), err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%s backend already holds a document", to.Name())
	}

	if err := to.Save(data); err != nil {
		return nil, fmt.Errorf("failed to write %s backend: %w", to.Name(), err)
	}
	return result, nil
}

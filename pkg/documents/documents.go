// Package documents stores user documents encrypted under the vault master key.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/types"
	"github.com/kompromat/kompromat/pkg/vault"
	"github.com/rs/zerolog"
)

const maxNameLength = 64

var (
	ErrInvalidDocumentName = fmt.Errorf("%w: invalid document name", vault.ErrInvalidInput)
	ErrMissingFields       = fmt.Errorf("%w: missing field(s)", vault.ErrInvalidInput)
	ErrInvalidFieldType    = fmt.Errorf("%w: invalid field type", vault.ErrInvalidInput)
)

// Input is the caller-supplied content of a document
type Input struct {
	Name   string                `json:"name"`
	Fields []types.DocumentField `json:"fields"`
}

// Validate checks the document name and fields
func (in *Input) Validate() error {
	if n := utf8.RuneCountInString(in.Name); n == 0 || n > maxNameLength {
		return ErrInvalidDocumentName
	}
	if len(in.Fields) == 0 {
		return ErrMissingFields
	}
	for _, field := range in.Fields {
		if !field.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidFieldType, field.Type)
		}
	}
	return nil
}

// Service stores documents with their fields encrypted under the master key.
// Active and archived documents live in separate namespaces.
type Service struct {
	store  *storage.KeyStore
	cipher *security.Cipher
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a document service
func NewService(store *storage.KeyStore, cipher *security.Cipher, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		cipher: cipher,
		now:    now,
		logger: log.WithComponent("documents"),
	}
}

// List returns active documents, newest first
func (s *Service) List(ctx context.Context, key vault.MasterKey) ([]types.Document, error) {
	docs, err := s.list(ctx, key, func(doc *storage.Document) map[string]*types.EncryptedDocument {
		return doc.Documents
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
	return docs, nil
}

// ListArchived returns archived documents, most recently archived first
func (s *Service) ListArchived(ctx context.Context, key vault.MasterKey) ([]types.Document, error) {
	docs, err := s.list(ctx, key, func(doc *storage.Document) map[string]*types.EncryptedDocument {
		return doc.ArchivedDocuments
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt > docs[j].UpdatedAt
	})
	return docs, nil
}

func (s *Service) list(ctx context.Context, key vault.MasterKey, namespace func(*storage.Document) map[string]*types.EncryptedDocument) ([]types.Document, error) {
	if err := requireKey(key); err != nil {
		return nil, err
	}

	var encrypted []*types.EncryptedDocument
	err := s.store.View(ctx, func(doc *storage.Document) error {
		for _, d := range namespace(doc) {
			encrypted = append(encrypted, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := make([]types.Document, 0, len(encrypted))
	for _, d := range encrypted {
		plain, err := s.decrypt(key, d)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *plain)
	}
	return docs, nil
}

// Create stores a new document. Fields without an id are assigned one.
func (s *Service) Create(ctx context.Context, key vault.MasterKey, in Input) (*types.Document, error) {
	if err := requireKey(key); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	doc := &types.Document{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Fields:    assignFieldIDs(in.Fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	encrypted, err := s.encrypt(key, doc)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, func(d *storage.Document) error {
		d.Documents[doc.ID] = encrypted
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("document_id", doc.ID).Msg("Document created")
	return doc, nil
}

// Update replaces an active document's name and fields
func (s *Service) Update(ctx context.Context, key vault.MasterKey, id string, in Input) (*types.Document, error) {
	if err := requireKey(key); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	doc := &types.Document{
		ID:        id,
		Name:      in.Name,
		Fields:    assignFieldIDs(in.Fields),
		UpdatedAt: s.now().UnixMilli(),
	}

	err := s.store.Update(ctx, func(d *storage.Document) error {
		existing, ok := d.Documents[id]
		if !ok {
			return fmt.Errorf("document %w", vault.ErrNotFound)
		}
		doc.CreatedAt = existing.CreatedAt

		encrypted, err := s.encrypt(key, doc)
		if err != nil {
			return err
		}
		d.Documents[id] = encrypted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Archive moves an active document to the archive
func (s *Service) Archive(ctx context.Context, key vault.MasterKey, id string) error {
	if err := requireKey(key); err != nil {
		return err
	}
	return s.move(ctx, id, false)
}

// Restore moves an archived document back to the active set
func (s *Service) Restore(ctx context.Context, key vault.MasterKey, id string) error {
	if err := requireKey(key); err != nil {
		return err
	}
	return s.move(ctx, id, true)
}

func (s *Service) move(ctx context.Context, id string, restore bool) error {
	now := s.now().UnixMilli()

	return s.store.Update(ctx, func(d *storage.Document) error {
		from, to := d.Documents, d.ArchivedDocuments
		if restore {
			from, to = d.ArchivedDocuments, d.Documents
		}

		doc, ok := from[id]
		if !ok {
			if restore {
				return fmt.Errorf("archived document %w", vault.ErrNotFound)
			}
			return fmt.Errorf("document %w", vault.ErrNotFound)
		}

		doc.UpdatedAt = now
		to[id] = doc
		delete(from, id)
		return nil
	})
}

// Delete permanently removes an archived document. Active documents must be
// archived first.
func (s *Service) Delete(ctx context.Context, key vault.MasterKey, id string) error {
	if err := requireKey(key); err != nil {
		return err
	}

	return s.store.Update(ctx, func(d *storage.Document) error {
		if _, ok := d.ArchivedDocuments[id]; !ok {
			return fmt.Errorf("archived document %w", vault.ErrNotFound)
		}
		delete(d.ArchivedDocuments, id)
		return nil
	})
}

func (s *Service) encrypt(key vault.MasterKey, doc *types.Document) (*types.EncryptedDocument, error) {
	plain, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	defer security.Wipe(plain)

	fields, err := s.cipher.Wrap(key, plain)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt fields: %w", err)
	}

	return &types.EncryptedDocument{
		ID:        doc.ID,
		Name:      doc.Name,
		Fields:    fields,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Service) decrypt(key vault.MasterKey, doc *types.EncryptedDocument) (*types.Document, error) {
	plain, err := s.cipher.Unwrap(key, doc.Fields)
	if errors.Is(err, security.ErrDecrypt) {
		return nil, fmt.Errorf("document %s could not be decrypted", doc.ID)
	}
	if err != nil {
		return nil, err
	}
	defer security.Wipe(plain)

	var fields []types.DocumentField
	if err := json.Unmarshal(plain, &fields); err != nil {
		return nil, fmt.Errorf("document %s has malformed fields: %w", doc.ID, err)
	}

	return &types.Document{
		ID:        doc.ID,
		Name:      doc.Name,
		Fields:    fields,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func requireKey(key vault.MasterKey) error {
	if len(key) != security.KeySize {
		return vault.ErrNotAuthenticated
	}
	return nil
}

func assignFieldIDs(fields []types.DocumentField) []types.DocumentField {
	out := make([]types.DocumentField, len(fields))
	for i, field := range fields {
		if field.ID == "" {
			field.ID = uuid.NewString()
		}
		out[i] = field
	}
	return out
}

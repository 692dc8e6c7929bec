package documents

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/types"
	"github.com/kompromat/kompromat/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so ordering is deterministic
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) (*Service, *storage.KeyStore, vault.MasterKey) {
	t.Helper()

	backend, err := storage.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store := storage.NewKeyStore(backend)
	t.Cleanup(func() { _ = store.Close() })

	key, err := security.RandomBytes(security.KeySize)
	require.NoError(t, err)

	clock := &stepClock{now: time.Unix(1700000000, 0)}
	return NewService(store, security.NewCipher(), clock.Now), store, key
}

func password(value string) []types.DocumentField {
	return []types.DocumentField{{Type: types.DocumentFieldPassword, Value: value}}
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{name: "valid", in: Input{Name: "email", Fields: password("x")}},
		{name: "empty name", in: Input{Fields: password("x")}, wantErr: ErrInvalidDocumentName},
		{name: "long name", in: Input{Name: strings.Repeat("n", 65), Fields: password("x")}, wantErr: ErrInvalidDocumentName},
		{name: "no fields", in: Input{Name: "email"}, wantErr: ErrMissingFields},
		{
			name:    "unknown field type",
			in:      Input{Name: "email", Fields: []types.DocumentField{{Type: "PIN", Value: "1"}}},
			wantErr: ErrInvalidFieldType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, vault.ErrInvalidInput)
		})
	}
}

func TestCreateEncryptsFields(t *testing.T) {
	ctx := context.Background()
	svc, store, key := newTestService(t)

	doc, err := svc.Create(ctx, key, Input{
		Name: "bank",
		Fields: []types.DocumentField{
			{Type: types.DocumentFieldPassword, Value: "hunter2"},
			{ID: "keep-me", Type: types.DocumentFieldNote, Value: "branch 12"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.NotEmpty(t, doc.Fields[0].ID, "missing field ids are assigned")
	assert.Equal(t, "keep-me", doc.Fields[1].ID)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	require.NoError(t, store.View(ctx, func(d *storage.Document) error {
		stored := d.Documents[doc.ID]
		require.NotNil(t, stored)
		assert.NotContains(t, stored.Fields, "hunter2")
		assert.Equal(t, "bank", stored.Name)
		return nil
	}))

	docs, err := svc.List(ctx, key)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, *doc, docs[0])
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, key := newTestService(t)

	for _, name := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, key, Input{Name: name, Fields: password(name)})
		require.NoError(t, err)
	}

	docs, err := svc.List(ctx, key)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "third", docs[0].Name)
	assert.Equal(t, "first", docs[2].Name)
}

func TestListWithWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	svc, _, key := newTestService(t)

	_, err := svc.Create(ctx, key, Input{Name: "a", Fields: password("a")})
	require.NoError(t, err)

	other, err := security.RandomBytes(security.KeySize)
	require.NoError(t, err)

	_, err = svc.List(ctx, other)
	assert.Error(t, err)

	_, err = svc.List(ctx, nil)
	assert.ErrorIs(t, err, vault.ErrNotAuthenticated)
}

func TestUpdateDocument(t *testing.T) {
	ctx := context.Background()
	svc, _, key := newTestService(t)

	created, err := svc.Create(ctx, key, Input{Name: "a", Fields: password("old")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, key, created.ID, Input{Name: "b", Fields: password("new")})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Greater(t, updated.UpdatedAt, created.UpdatedAt)

	docs, err := svc.List(ctx, key)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].Name)
	assert.Equal(t, "new", docs[0].Fields[0].Value)

	_, err = svc.Update(ctx, key, "missing", Input{Name: "b", Fields: password("x")})
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestArchiveRestoreDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, key := newTestService(t)

	doc, err := svc.Create(ctx, key, Input{Name: "old login", Fields: password("x")})
	require.NoError(t, err)

	// active documents cannot be deleted
	assert.ErrorIs(t, svc.Delete(ctx, key, doc.ID), vault.ErrNotFound)

	require.NoError(t, svc.Archive(ctx, key, doc.ID))
	assert.ErrorIs(t, svc.Archive(ctx, key, doc.ID), vault.ErrNotFound)

	active, err := svc.List(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, active)

	archived, err := svc.ListArchived(ctx, key)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Greater(t, archived[0].UpdatedAt, doc.UpdatedAt)

	require.NoError(t, svc.Restore(ctx, key, doc.ID))
	assert.ErrorIs(t, svc.Restore(ctx, key, doc.ID), vault.ErrNotFound)

	active, err = svc.List(ctx, key)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, svc.Archive(ctx, key, doc.ID))
	require.NoError(t, svc.Delete(ctx, key, doc.ID))

	archived, err = svc.ListArchived(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestListArchivedMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, key := newTestService(t)

	a, err := svc.Create(ctx, key, Input{Name: "a", Fields: password("a")})
	require.NoError(t, err)
	b, err := svc.Create(ctx, key, Input{Name: "b", Fields: password("b")})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, key, b.ID))
	require.NoError(t, svc.Archive(ctx, key, a.ID))

	archived, err := svc.ListArchived(ctx, key)
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, a.ID, archived[0].ID)
}

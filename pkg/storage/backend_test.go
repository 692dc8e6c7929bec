package storage

import (
	"context"
	"testing"

	"github.com/kompromat/kompromat/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		kind     string
		wantName string
		wantErr  bool
	}{
		{kind: "", wantName: "file"},
		{kind: BackendFile, wantName: "file"},
		{kind: BackendBolt, wantName: "bolt"},
		{kind: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, err := OpenBackend(tt.kind, t.TempDir())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestMigrateFileToBolt(t *testing.T) {
	ctx := context.Background()

	from, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	source := NewKeyStore(from)
	require.NoError(t, source.Update(ctx, func(doc *Document) error {
		doc.Meta.HasInitialized = true
		doc.AccessCards["a"] = &types.AccessCard{ID: "a"}
		doc.Tokens["t"] = &types.Token{ID: "t"}
		doc.ArchivedDocuments["d"] = &types.EncryptedDocument{ID: "d"}
		return nil
	}))

	to, err := NewBoltBackend(t.TempDir())
	require.NoError(t, err)
	defer to.Close()

	dry, err := Migrate(from, to, true)
	require.NoError(t, err)
	assert.Equal(t, 1, dry.AccessCards)
	empty, err := to.Load()
	require.NoError(t, err)
	assert.Nil(t, empty, "dry run must not write")

	result, err := Migrate(from, to, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccessCards)
	assert.Equal(t, 1, result.Tokens)
	assert.Equal(t, 1, result.Documents)

	target := NewKeyStore(to)
	initialized, err := target.Initialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)

	// a second run refuses to overwrite
	_, err = Migrate(from, to, false)
	assert.Error(t, err)
}

func TestMigrateEmptySource(t *testing.T) {
	from, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	to, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	_, err = Migrate(from, to, false)
	assert.Error(t, err)
}

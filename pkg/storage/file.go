package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileDocumentName = "kompromat.json"
	fileLockName     = "kompromat.lock"

	lockRetryDelay = 10 * time.Millisecond
)

// FileBackend keeps the document in one JSON file. Writes go to a temp file
// in the same directory which is then renamed over the original, so a failed
// write never truncates the live document.
type FileBackend struct {
	dir      string
	path     string
	fileLock *flock.Flock
}

// NewFileBackend creates a file backend rooted at dataDir
func NewFileBackend(dataDir string) (*FileBackend, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FileBackend{
		dir:      dataDir,
		path:     filepath.Join(dataDir, fileDocumentName),
		fileLock: flock.New(filepath.Join(dataDir, fileLockName)),
	}, nil
}

// Name returns "file"
func (f *FileBackend) Name() string {
	return "file"
}

// Path returns the document path
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads the document; a missing file yields nil data
func (f *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes data to a temp file, syncs it and renames it into place
func (f *FileBackend) Save(data []byte) (err error) {
	tmp, err := os.CreateTemp(f.dir, ".kompromat-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = tmp.Chmod(0600); err != nil {
		return fmt.Errorf("failed to set temp file mode: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}

	return syncDir(f.dir)
}

// Lock takes the cross-process file lock, retrying until ctx is done
func (f *FileBackend) Lock(ctx context.Context) (func(), error) {
	locked, err := f.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire file lock: %s", f.fileLock.Path())
	}

	return func() {
		_ = f.fileLock.Unlock()
	}, nil
}

// Close releases the file lock if held
func (f *FileBackend) Close() error {
	return f.fileLock.Unlock()
}

// syncDir flushes the directory entry so the rename survives a crash
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync data directory: %w", err)
	}
	return nil
}

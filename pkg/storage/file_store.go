package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// FileStore keeps one small JSON file per key under a directory, so
// resolutions survive restarts without any external service.
type FileStore struct {
	dir string
	now func() time.Time
}

type fileEntry struct {
	Value     bool      `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewFileStore creates the directory if needed and returns a store in it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (f *FileStore) Get(_ context.Context, key string) (models.Verdict, error) {
	path := f.path(key)

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Unknown, nil
	}
	if err != nil {
		return models.Unknown, fmt.Errorf("read cache entry: %w", err)
	}

	// Stale or broken files are left for the next Put to replace; removing
	// them here could race with a concurrent rename of a fresh entry.
	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.Unknown, fmt.Errorf("decode cache entry: %w", err)
	}

	if !f.now().Before(entry.ExpiresAt) {
		return models.Unknown, nil
	}
	return models.VerdictOf(entry.Value), nil
}

// Put writes to a temporary file and renames it into place, so readers see
// either the old or the new entry.
func (f *FileStore) Put(_ context.Context, key string, value bool, ttl time.Duration) error {
	raw, err := json.Marshal(fileEntry{
		Value:     value,
		ExpiresAt: f.now().Add(effectiveTTL(ttl)),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// path maps a key to a file name. Keys are hashed so any string is safe.
func (f *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

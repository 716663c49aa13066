package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// BlobStore persists uploaded image bytes and returns the public URL the
// stored document should carry. Injected into services so tests can
// substitute an in-memory implementation.
type BlobStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// LocalStore writes blobs into a directory served statically under
// /uploads. The directory is created on first use; creating an existing
// directory is not an error, so concurrent first uploads are safe.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: baseURL}
}

func (s *LocalStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return s.BaseURL + "/uploads/" + filename, nil
}

// MemoryStore keeps blobs in a map. Test double.
type MemoryStore struct {
	mu    sync.Mutex
	Blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Blobs[filename] = data
	return "http://example.test/uploads/" + filename, nil
}

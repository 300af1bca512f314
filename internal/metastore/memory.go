package metastore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process BlobStore for tests and devnet runs
// without bucket credentials.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) UploadBlob(_ context.Context, data []byte, filename, _ string) (string, error) {
	key := contentKey(data, filename)
	s.mu.Lock()
	s.blobs[key] = append([]byte(nil), data...)
	s.mu.Unlock()
	return "memory://" + key, nil
}

// Get returns a stored blob by key, nil when absent.
func (s *MemoryStore) Get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[key]
}

// Len returns how many distinct blobs are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

var _ BlobStore = (*MemoryStore)(nil)

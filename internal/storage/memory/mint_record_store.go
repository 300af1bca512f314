// Package memory provides in-process store implementations for tests
// and single-node development runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/storage"
)

// MintRecordStore implements storage.MintRecordStore in memory.
type MintRecordStore struct {
	mu      sync.RWMutex
	records map[string]*domain.MintRecord // mint -> record
}

// NewMintRecordStore creates an empty in-memory store.
func NewMintRecordStore() *MintRecordStore {
	return &MintRecordStore{records: make(map[string]*domain.MintRecord)}
}

// Compile-time interface check.
var _ storage.MintRecordStore = (*MintRecordStore)(nil)

func (s *MintRecordStore) Insert(_ context.Context, r *domain.MintRecord) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.Mint]; exists {
		return storage.ErrDuplicateKey
	}
	clone := *r
	s.records[r.Mint] = &clone
	return nil
}

func (s *MintRecordStore) AttachMetadataURI(_ context.Context, mint, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.records[mint]
	if !exists {
		return storage.ErrNotFound
	}
	r.MetadataURI = &uri
	return nil
}

func (s *MintRecordStore) GetByMint(_ context.Context, mint string) (*domain.MintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *MintRecordStore) GetByCreator(_ context.Context, creator string) ([]*domain.MintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*domain.MintRecord
	for _, r := range s.records {
		if r.Creator == creator {
			clone := *r
			records = append(records, &clone)
		}
	}
	sortNewestFirst(records)
	return records, nil
}

func (s *MintRecordStore) GetRecent(_ context.Context, limit int) ([]*domain.MintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.MintRecord, 0, len(s.records))
	for _, r := range s.records {
		clone := *r
		records = append(records, &clone)
	}
	sortNewestFirst(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func sortNewestFirst(records []*domain.MintRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
}

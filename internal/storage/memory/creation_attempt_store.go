package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/storage"
)

// CreationAttemptStore implements storage.CreationAttemptStore in memory.
type CreationAttemptStore struct {
	mu       sync.RWMutex
	attempts []*domain.CreationAttempt
}

// NewCreationAttemptStore creates an empty in-memory store.
func NewCreationAttemptStore() *CreationAttemptStore {
	return &CreationAttemptStore{}
}

// Compile-time interface check.
var _ storage.CreationAttemptStore = (*CreationAttemptStore)(nil)

func (s *CreationAttemptStore) Insert(ctx context.Context, a *domain.CreationAttempt) error {
	return s.InsertBulk(ctx, []*domain.CreationAttempt{a})
}

func (s *CreationAttemptStore) InsertBulk(_ context.Context, attempts []*domain.CreationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range attempts {
		if a == nil || a.AttemptID == "" {
			return storage.ErrInvalidInput
		}
		clone := *a
		s.attempts = append(s.attempts, &clone)
	}
	return nil
}

func (s *CreationAttemptStore) GetByMint(_ context.Context, mint string) ([]*domain.CreationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.CreationAttempt
	for _, a := range s.attempts {
		if a.Mint == mint {
			clone := *a
			out = append(out, &clone)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *CreationAttemptStore) GetByCreator(_ context.Context, creator string, start, end int64) ([]*domain.CreationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.CreationAttempt
	for _, a := range s.attempts {
		if a.Creator == creator && a.StartedAt >= start && a.StartedAt <= end {
			clone := *a
			out = append(out, &clone)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *CreationAttemptStore) CountByOutcome(_ context.Context, start, end int64) (map[string]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]uint64)
	for _, a := range s.attempts {
		if a.StartedAt >= start && a.StartedAt <= end {
			counts[a.Outcome]++
		}
	}
	return counts, nil
}

func sortOldestFirst(attempts []*domain.CreationAttempt) {
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].StartedAt == attempts[j].StartedAt {
			return attempts[i].AttemptNumber < attempts[j].AttemptNumber
		}
		return attempts[i].StartedAt < attempts[j].StartedAt
	})
}

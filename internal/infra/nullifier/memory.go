package nullifier

import (
	"context"
	"sync"
)

// MemoryStore tracks consumed nullifiers in process memory. Suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[string]struct{})}
}

func (s *MemoryStore) Used(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.used[key]
	return ok, nil
}

// Consume is idempotent: a consumed key stays consumed forever.
func (s *MemoryStore) Consume(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[key] = struct{}{}
	return nil
}

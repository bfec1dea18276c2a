package registry

import (
	"context"
	"sync"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// MemoryRegistry holds profiles in process memory. Used when no database is
// configured and as the backing store in tests.
type MemoryRegistry struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{profiles: make(map[string]domain.Profile)}
}

func (r *MemoryRegistry) GetProfile(_ context.Context, ref string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := profile
	return &copied, nil
}

func (r *MemoryRegistry) SaveProfile(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	if profile.Ref == "" {
		return domain.Profile{}, domain.ErrMalformedRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.Ref] = profile
	return profile, nil
}

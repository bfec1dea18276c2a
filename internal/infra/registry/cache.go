package registry

import (
	"context"
	"sync"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/usecase"
)

// CachedRegistry fronts a registry repository with a TTL cache. Lookups hit
// the evaluation hot path, so a short TTL keeps the store off it without
// serving stale suspensions for long.
type CachedRegistry struct {
	inner usecase.RegistryRepository
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	profile   domain.Profile
	expiresAt time.Time
}

func NewCachedRegistry(inner usecase.RegistryRepository, ttl time.Duration, now func() time.Time) *CachedRegistry {
	if now == nil {
		now = time.Now
	}
	return &CachedRegistry{
		inner:   inner,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedRegistry) GetProfile(ctx context.Context, ref string) (*domain.Profile, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[ref]
	if ok && now.Before(entry.expiresAt) {
		profile := entry.profile
		c.mu.Unlock()
		return &profile, nil
	}
	if ok {
		delete(c.entries, ref)
	}
	c.mu.Unlock()

	profile, err := c.inner.GetProfile(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[ref] = cacheEntry{profile: *profile, expiresAt: now.Add(c.ttl)}
		c.mu.Unlock()
	}
	return profile, nil
}

// Invalidate drops a cached profile after an admin update.
func (c *CachedRegistry) Invalidate(ref string) {
	c.mu.Lock()
	delete(c.entries, ref)
	c.mu.Unlock()
}

var _ usecase.RegistryRepository = (*CachedRegistry)(nil)

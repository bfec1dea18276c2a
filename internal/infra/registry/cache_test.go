package registry

import (
	"context"
	"testing"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

type countingRegistry struct {
	inner *MemoryRegistry
	gets  int
}

func (c *countingRegistry) GetProfile(ctx context.Context, ref string) (*domain.Profile, error) {
	c.gets++
	return c.inner.GetProfile(ctx, ref)
}

func (c *countingRegistry) SaveProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	return c.inner.SaveProfile(ctx, profile)
}

func TestCachedRegistryServesWithinTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backing := &countingRegistry{inner: NewMemoryRegistry()}
	backing.SaveProfile(ctx, domain.Profile{Ref: "profile-1", Status: domain.ProfileActive})

	cached := NewCachedRegistry(backing, 30*time.Second, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		profile, err := cached.GetProfile(ctx, "profile-1")
		if err != nil || profile.Ref != "profile-1" {
			t.Fatalf("get %d: %+v err=%v", i, profile, err)
		}
	}
	if backing.gets != 1 {
		t.Fatalf("backing gets = %d, repeats within the TTL must be served from cache", backing.gets)
	}

	now = now.Add(31 * time.Second)
	if _, err := cached.GetProfile(ctx, "profile-1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if backing.gets != 2 {
		t.Fatalf("backing gets = %d, an expired entry must re-fetch", backing.gets)
	}
}

func TestCachedRegistryInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := &countingRegistry{inner: NewMemoryRegistry()}
	backing.SaveProfile(ctx, domain.Profile{Ref: "profile-1", Status: domain.ProfileActive})

	cached := NewCachedRegistry(backing, time.Minute, nil)
	if _, err := cached.GetProfile(ctx, "profile-1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	// The admin path suspends the profile and invalidates; the next read must
	// observe the new status immediately.
	backing.SaveProfile(ctx, domain.Profile{Ref: "profile-1", Status: domain.ProfileSuspended})
	cached.Invalidate("profile-1")

	profile, err := cached.GetProfile(ctx, "profile-1")
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if profile.Status != domain.ProfileSuspended {
		t.Fatalf("status = %s, invalidation must not serve the stale profile", profile.Status)
	}
}

func TestCachedRegistryDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := &countingRegistry{inner: NewMemoryRegistry()}
	cached := NewCachedRegistry(backing, time.Minute, nil)

	if _, err := cached.GetProfile(ctx, "missing"); err == nil {
		t.Fatal("unknown profile must error")
	}

	backing.SaveProfile(ctx, domain.Profile{Ref: "missing", Status: domain.ProfileActive})
	if _, err := cached.GetProfile(ctx, "missing"); err != nil {
		t.Fatalf("a later registration must be visible: %v", err)
	}
}

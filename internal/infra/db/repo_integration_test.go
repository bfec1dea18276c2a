//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/config"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	store, err := NewStore(config.Config{PostgresDSN: dsn})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestProfileRepositoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := NewProfileRepository(store.DB)
	ctx := context.Background()
	ref := "it-profile-" + time.Now().UTC().Format("20060102150405.000000000")

	saved, err := repo.SaveProfile(ctx, domain.Profile{
		Ref:       ref,
		Status:    domain.ProfileActive,
		PublicKey: make([]byte, 32),
		SigAlg:    "ed25519",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetProfile(ctx, ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != saved.Status || got.SigAlg != "ed25519" {
		t.Fatalf("got = %+v", got)
	}

	// Upsert: a status change overwrites in place.
	if _, err := repo.SaveProfile(ctx, domain.Profile{
		Ref:       ref,
		Status:    domain.ProfileSuspended,
		PublicKey: saved.PublicKey,
		SigAlg:    "ed25519",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = repo.GetProfile(ctx, ref)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if got.Status != domain.ProfileSuspended {
		t.Fatalf("status = %s, want suspended", got.Status)
	}

	if _, err := repo.GetProfile(ctx, ref+"-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing profile: err=%v", err)
	}
}

func TestEscrowRepositoryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	repo := NewEscrowRepository(store.DB)
	ctx := context.Background()
	id := "it-escrow-" + time.Now().UTC().Format("20060102150405.000000000")
	at := time.Now().UTC().Truncate(time.Microsecond)

	rec := &domain.EscrowRecord{
		ID:                 id,
		Buyer:              "buyer-1",
		Seller:             "seller-1",
		Amount:             5000,
		Asset:              "USDt",
		State:              domain.EscrowCommitted,
		Lock:               true,
		CreatedAt:          at,
		AcceptanceDeadline: at.Add(30 * time.Minute),
	}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != domain.EscrowCommitted || !got.Lock || !got.AcceptanceDeadline.Equal(rec.AcceptanceDeadline) {
		t.Fatalf("got = %+v", got)
	}
	if !got.FulfillmentDeadline.IsZero() {
		t.Fatalf("unset deadline must round-trip as zero, got %s", got.FulfillmentDeadline)
	}

	// Settle and confirm the record leaves the open set.
	rec.State = domain.EscrowClaimed
	rec.FinalStatus = domain.FinalClaimed
	rec.SettledAt = at.Add(time.Minute)
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("save terminal: %v", err)
	}
	open, err := repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	for _, o := range open {
		if o.ID == id {
			t.Fatal("terminal record must not be listed as open")
		}
	}
}

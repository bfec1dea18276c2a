package usecase

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	cryptoinfra "github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/crypto"
)

func newGenerator(t *testing.T) (*EnvelopeGenerator, ed25519.PublicKey, *fakeClock) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	gen := &EnvelopeGenerator{
		Crypto:     cryptoinfra.NewService(),
		SigningKey: priv,
		Validity:   5 * time.Minute,
		Clock:      clock,
	}
	return gen, pub, clock
}

func passedSummary() domain.VerificationSummary {
	return domain.VerificationSummary{
		RequestID: "req-1",
		Results: []domain.LayerResult{
			{LayerID: domain.LayerRegistry, Outcome: domain.OutcomePass},
		},
		AllPassed: true,
	}
}

func TestGenerateRefusesIncompletePass(t *testing.T) {
	gen, _, _ := newGenerator(t)
	summary := passedSummary()
	summary.AllPassed = false
	if _, err := gen.Generate(chainRequest(), summary); err == nil {
		t.Fatal("generator must refuse a summary that did not fully pass")
	}
}

func TestExpiredEnvelopeRejectedBeforeSignature(t *testing.T) {
	gen, pub, clock := newGenerator(t)
	envelope, err := gen.Generate(chainRequest(), passedSummary())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := VerifyEnvelope(gen.Crypto, pub, *envelope, clock.Now()); err != nil {
		t.Fatalf("fresh envelope: %v", err)
	}

	clock.advance(gen.Validity)
	err = VerifyEnvelope(gen.Crypto, pub, *envelope, clock.Now())
	if !errors.Is(err, domain.ErrEnvelopeExpired) {
		t.Fatalf("expired envelope err = %v, want ErrEnvelopeExpired", err)
	}

	// The same envelope with a broken signature still reports expiry: the
	// temporal boundary is checked first.
	tampered := *envelope
	tampered.Signature = "AAAA"
	err = VerifyEnvelope(gen.Crypto, pub, tampered, clock.Now())
	if !errors.Is(err, domain.ErrEnvelopeExpired) {
		t.Fatalf("expired+tampered err = %v, want ErrEnvelopeExpired", err)
	}
}

func TestTamperedEnvelopeFailsVerification(t *testing.T) {
	gen, pub, clock := newGenerator(t)
	envelope, err := gen.Generate(chainRequest(), passedSummary())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tampered := *envelope
	tampered.Amount = envelope.Amount + 1
	if err := VerifyEnvelope(gen.Crypto, pub, tampered, clock.Now()); err == nil {
		t.Fatal("tampered amount must fail verification")
	}

	wrongPub, _, _ := ed25519.GenerateKey(nil)
	if err := VerifyEnvelope(gen.Crypto, wrongPub, *envelope, clock.Now()); err == nil {
		t.Fatal("wrong key must fail verification")
	}
}

func TestRejectSignsAndMapsErrorType(t *testing.T) {
	gen, pub, _ := newGenerator(t)
	failed := domain.LayerResult{
		LayerID:   domain.LayerPolicy,
		Outcome:   domain.OutcomeFail,
		ErrorCode: "GATEWAY_L5_VALUE_CEILING_EXCEEDED",
		Detail:    "amount exceeds the configured value ceiling",
	}
	rejection := gen.Reject(failed, passedSummary())
	if rejection.Status != domain.RejectionStatusDenied || rejection.ErrorType != "policy" {
		t.Fatalf("rejection = %+v", rejection)
	}
	if rejection.RetryAllowed {
		t.Fatal("permanent failure must not allow retry")
	}
	if err := VerifyRejection(gen.Crypto, pub, *rejection); err != nil {
		t.Fatalf("rejection signature: %v", err)
	}
}

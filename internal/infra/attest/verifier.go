package attest

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// Verifier checks attestation tokens: EdDSA-signed JWTs whose claims bind
// the attested target and amount to this request.
type Verifier struct {
	pubKey ed25519.PublicKey
	now    func() time.Time
}

func NewVerifier(pubKeyHex string, now func() time.Time) (*Verifier, error) {
	decoded, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode attestor public key: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected attestor key length: %d", len(decoded))
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{pubKey: ed25519.PublicKey(decoded), now: now}, nil
}

type claims struct {
	TargetRef string `json:"target_ref"`
	Amount    uint64 `json:"amount"`
	jwt.RegisteredClaims
}

func (v *Verifier) Verify(_ context.Context, token string, req domain.VerificationRequest) error {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.pubKey, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return fmt.Errorf("parse attestation: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return errors.New("attestation claims invalid")
	}
	if c.TargetRef != req.TargetRef {
		return errors.New("attestation does not bind the requested target")
	}
	if c.Amount != req.Amount {
		return errors.New("attestation does not bind the requested amount")
	}
	return nil
}

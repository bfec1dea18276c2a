package usecase

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// EnvelopeGenerator serializes and signs what the chain already decided.
// It never re-derives values: the request and summary arrive fully verified.
type EnvelopeGenerator struct {
	Crypto     CryptoService
	SigningKey ed25519.PrivateKey
	Validity   time.Duration
	Clock      Clock
}

// Generate binds the verified facts and an expiration into one signed
// payload. Expiration is a hard temporal boundary for every consumer.
func (g *EnvelopeGenerator) Generate(req domain.VerificationRequest, summary domain.VerificationSummary) (*domain.Envelope, error) {
	if !summary.AllPassed {
		return nil, errors.New("refusing to generate envelope for an incomplete pass")
	}
	now := g.Clock.Now().UTC()
	envelope := domain.Envelope{
		TargetRef:  req.TargetRef,
		ChainID:    req.ChainID,
		Asset:      req.Asset,
		Amount:     req.Amount,
		SessionRef: uuid.NewString(),
		IssuedAt:   now,
		ExpiresAt:  now.Add(g.Validity),
		Summary:    summary,
	}
	sig, err := g.Crypto.Sign(g.SigningKey, unsignedEnvelope(envelope))
	if err != nil {
		return nil, err
	}
	envelope.Signature = sig
	return &envelope, nil
}

// Reject builds and signs the structured failure object for a halted chain.
// Rejection signing is best-effort: a rejection is still a rejection when
// the signer is unavailable.
func (g *EnvelopeGenerator) Reject(failed domain.LayerResult, summary domain.VerificationSummary) *domain.RejectionRecord {
	rejection := domain.RejectionRecord{
		Status:       domain.RejectionStatusDenied,
		ErrorType:    layerErrorType(failed.LayerID),
		ErrorCode:    failed.ErrorCode,
		LayerFailed:  int(failed.LayerID),
		Reason:       failed.Detail,
		RetryAllowed: failed.Retryable,
		Timestamp:    g.Clock.Now().UTC(),
	}
	if sig, err := g.Crypto.Sign(g.SigningKey, unsignedRejection(rejection)); err == nil {
		rejection.Signature = sig
	}
	return &rejection
}

// VerifyEnvelope is the consumer-side check, also used by the offline CLI.
// An expired envelope is rejected before the signature is even considered.
func VerifyEnvelope(crypto CryptoService, pub ed25519.PublicKey, envelope domain.Envelope, now time.Time) error {
	if envelope.Expired(now) {
		return domain.ErrEnvelopeExpired
	}
	return crypto.Verify(pub, unsignedEnvelope(envelope), envelope.Signature)
}

// VerifyRejection checks a rejection record's gateway signature.
func VerifyRejection(crypto CryptoService, pub ed25519.PublicKey, rejection domain.RejectionRecord) error {
	return crypto.Verify(pub, unsignedRejection(rejection), rejection.Signature)
}

func unsignedEnvelope(e domain.Envelope) domain.Envelope {
	e.Signature = ""
	return e
}

func unsignedRejection(r domain.RejectionRecord) domain.RejectionRecord {
	r.Signature = ""
	return r
}

func layerErrorType(id domain.LayerID) string {
	switch id {
	case domain.LayerRegistry:
		return "registry"
	case domain.LayerSignature:
		return "signature"
	case domain.LayerResource:
		return "resource_verification"
	case domain.LayerAttestation:
		return "attestation"
	case domain.LayerPolicy:
		return "policy"
	case domain.LayerEscrow:
		return "escrow_eligibility"
	}
	return "request"
}

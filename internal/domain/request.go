package domain

import (
	"time"
)

// VerificationRequest is the immutable per-attempt input to the layer chain.
// It is created once per inbound query and never mutated.
type VerificationRequest struct {
	RequestID    string    `json:"request_id"`
	RequesterRef string    `json:"requester_ref"`
	TargetRef    string    `json:"target_ref"`
	ChainID      uint64    `json:"chain_id"`
	Amount       uint64    `json:"amount"`
	Asset        string    `json:"asset"`
	ProfileRef   string    `json:"profile_ref"`
	Signature    Signature `json:"signature"`
	Attestation  string    `json:"attestation,omitempty"`
	Nullifier    string    `json:"nullifier,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Signature carries a requester-supplied signature over the request subject.
type Signature struct {
	Alg   string `json:"alg"`
	KID   string `json:"kid"`
	Value string `json:"value"`
}

// Validate rejects structurally malformed requests before the chain runs.
func (r VerificationRequest) Validate() error {
	if r.RequesterRef == "" || r.TargetRef == "" || r.ProfileRef == "" {
		return ErrMalformedRequest
	}
	if r.ChainID == 0 || r.Amount == 0 || r.Asset == "" {
		return ErrMalformedRequest
	}
	if r.Timestamp.IsZero() {
		return ErrMalformedRequest
	}
	return nil
}

// Subject is the canonical portion of the request a profile signature covers.
func (r VerificationRequest) Subject() map[string]any {
	return map[string]any{
		"requester_ref": r.RequesterRef,
		"target_ref":    r.TargetRef,
		"chain_id":      r.ChainID,
		"amount":        r.Amount,
		"asset":         r.Asset,
		"profile_ref":   r.ProfileRef,
	}
}

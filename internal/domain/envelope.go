package domain

import "time"

// Envelope is the signed, time-bounded authorization artifact. It exists only
// when every REQUIRED layer in its summary passed, and it is dead data after
// ExpiresAt regardless of signature validity.
type Envelope struct {
	TargetRef  string              `json:"target_ref"`
	ChainID    uint64              `json:"chain_id"`
	Asset      string              `json:"asset"`
	Amount     uint64              `json:"amount"`
	SessionRef string              `json:"session_ref"`
	IssuedAt   time.Time           `json:"issued_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
	Summary    VerificationSummary `json:"verification_summary"`
	Signature  string              `json:"signature"`
}

// Expired reports whether the envelope's validity window has closed.
func (e Envelope) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// RejectionRecord is the signed, terminal failure object for one attempt.
type RejectionRecord struct {
	Status       string    `json:"status"`
	ErrorType    string    `json:"error_type"`
	ErrorCode    string    `json:"error_code"`
	LayerFailed  int       `json:"layer_failed"`
	Reason       string    `json:"reason"`
	RetryAllowed bool      `json:"retry_allowed"`
	Timestamp    time.Time `json:"timestamp"`
	Signature    string    `json:"signature"`
}

const RejectionStatusDenied = "DENIED"

// Verdict is the outcome of one verification attempt: exactly one of
// Envelope or Rejection is set.
type Verdict struct {
	Approved  bool                `json:"approved"`
	Envelope  *Envelope           `json:"envelope,omitempty"`
	Rejection *RejectionRecord    `json:"rejection,omitempty"`
	Summary   VerificationSummary `json:"summary"`
}

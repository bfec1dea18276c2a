package domain

import "errors"

var (
	ErrMalformedRequest    = errors.New("malformed verification request")
	ErrProfileUnknown      = errors.New("profile unknown")
	ErrProfileDisabled     = errors.New("profile disabled")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrResourceMismatch    = errors.New("resource fingerprint mismatch")
	ErrAttestationRequired = errors.New("attestation required")
	ErrAttestationInvalid  = errors.New("attestation invalid")
	ErrPolicyViolation     = errors.New("policy violation")
	ErrNullifierUsed       = errors.New("nullifier already used")
	ErrNotFound            = errors.New("not found")

	ErrEscrowTerminal     = errors.New("escrow record is terminal")
	ErrInvalidTransition  = errors.New("invalid escrow transition")
	ErrDeadlineNotElapsed = errors.New("escrow deadline has not elapsed")
	ErrWithdrawalLocked   = errors.New("withdrawal locked")
	ErrEnvelopeExpired    = errors.New("envelope expired")
)

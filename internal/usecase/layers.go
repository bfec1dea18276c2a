package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// Quorum fact methods the resource layer asks providers for.
const (
	MethodResourceFingerprint = "tbc_getResourceFingerprint"
	MethodResourceState       = "tbc_getResourceState"
)

// EvalContext carries the request plus the advisory facts each layer
// establishes for the layers after it. Layers run strictly in order, so a
// layer may rely on everything its predecessors filled in.
type EvalContext struct {
	Request        domain.VerificationRequest
	Profile        *domain.Profile
	SignatureValid bool
	Consensus      *domain.ConsensusResult
	Fingerprint    string
}

// Layer is one onion ring. Evaluate must be total: it returns a result, it
// does not return errors or panic past the chain's guard.
type Layer interface {
	ID() domain.LayerID
	Kind() domain.LayerKind
	Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult
}

func pass(id domain.LayerID) domain.LayerResult {
	return domain.LayerResult{LayerID: id, Outcome: domain.OutcomePass}
}

func fail(id domain.LayerID, codeType, detail string, retryable bool) domain.LayerResult {
	return domain.LayerResult{
		LayerID:   id,
		Outcome:   domain.OutcomeFail,
		ErrorCode: domain.GatewayCode(id, codeType),
		Detail:    detail,
		Retryable: retryable,
	}
}

func skipped(id domain.LayerID, detail string) domain.LayerResult {
	return domain.LayerResult{LayerID: id, Outcome: domain.OutcomeSkipped, Detail: detail}
}

// RegistryLayer checks that the target's controlling profile is active.
// Ambiguous answers are failures, but infrastructure faults stay retryable:
// registry health is not a security verdict.
type RegistryLayer struct {
	Registry RegistryRepository
}

func (l *RegistryLayer) ID() domain.LayerID { return domain.LayerRegistry }
func (l *RegistryLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *RegistryLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	profile, err := l.Registry.GetProfile(ctx, ec.Request.ProfileRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fail(l.ID(), "PROFILE_UNKNOWN", "profile is not registered", false)
		}
		return fail(l.ID(), "REGISTRY_UNAVAILABLE", err.Error(), true)
	}
	if !profile.Active() {
		return fail(l.ID(), "REGISTRY_DISABLED", fmt.Sprintf("profile status is %s", profile.Status), false)
	}
	ec.Profile = profile
	return pass(l.ID())
}

// SignatureLayer verifies the submitted profile signature over the request
// subject. A valid signature proves intent to publish the profile; it says
// nothing about resource safety, which only layer 3 establishes.
type SignatureLayer struct {
	Crypto CryptoService
}

func (l *SignatureLayer) ID() domain.LayerID { return domain.LayerSignature }
func (l *SignatureLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *SignatureLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	sig := ec.Request.Signature
	if sig.Alg != "" && sig.Alg != "ed25519" {
		return fail(l.ID(), "SIGNATURE_INVALID", "unsupported signature algorithm", false)
	}
	if ec.Profile == nil || len(ec.Profile.PublicKey) != ed25519.PublicKeySize {
		return fail(l.ID(), "SIGNATURE_INVALID", "profile has no usable public key", false)
	}
	if err := l.Crypto.Verify(ed25519.PublicKey(ec.Profile.PublicKey), ec.Request.Subject(), sig.Value); err != nil {
		return fail(l.ID(), "SIGNATURE_INVALID", err.Error(), false)
	}
	ec.SignatureValid = true
	return pass(l.ID())
}

// ResourceLayer resolves the target's canonical fingerprint and state from
// quorum and compares them against the version-pinned expectation. This is
// the only layer allowed to suspend on network I/O.
type ResourceLayer struct {
	Resolver     Resolver
	Fingerprints FingerprintTable
}

func (l *ResourceLayer) ID() domain.LayerID { return domain.LayerResource }
func (l *ResourceLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *ResourceLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	req := ec.Request
	pin, ok := l.Fingerprints.Lookup(req.TargetRef, req.ChainID)
	if !ok {
		return fail(l.ID(), "FINGERPRINT_UNPINNED", "no expected fingerprint pinned for target", false)
	}

	query := domain.QuorumQuery{
		Method:      MethodResourceFingerprint,
		ResourceRef: req.TargetRef,
		ChainID:     req.ChainID,
	}
	consensus, err := l.Resolver.Resolve(ctx, query)
	if err != nil {
		var qerr *domain.QuorumError
		if errors.As(err, &qerr) {
			return fail(l.ID(), "QUORUM_INSUFFICIENT", qerr.Error(), true)
		}
		return fail(l.ID(), "RESOLVER_FAULT", err.Error(), true)
	}
	if consensus.Value != pin.Fingerprint {
		return fail(l.ID(), "RESOURCE_MISMATCH",
			fmt.Sprintf("quorum fingerprint %s does not match pinned %s", consensus.Value, pin.Fingerprint), false)
	}

	state, err := l.Resolver.Resolve(ctx, domain.QuorumQuery{
		Method:      MethodResourceState,
		ResourceRef: req.TargetRef,
		ChainID:     req.ChainID,
	})
	if err != nil {
		var qerr *domain.QuorumError
		if errors.As(err, &qerr) {
			return fail(l.ID(), "QUORUM_INSUFFICIENT", qerr.Error(), true)
		}
		return fail(l.ID(), "RESOLVER_FAULT", err.Error(), true)
	}
	declared := fmt.Sprintf("%d/%s", req.ChainID, req.Asset)
	if state.Value != declared {
		return fail(l.ID(), "STATE_MISMATCH",
			fmt.Sprintf("declared %s, quorum state %s", declared, state.Value), false)
	}

	ec.Consensus = &consensus
	ec.Fingerprint = consensus.Value
	return pass(l.ID())
}

// AttestationLayer is optional: it triggers only above the configured value
// threshold. Untriggered evaluations record SKIPPED, never PASS.
type AttestationLayer struct {
	Verifier  AttestationVerifier
	Threshold uint64
}

func (l *AttestationLayer) ID() domain.LayerID { return domain.LayerAttestation }
func (l *AttestationLayer) Kind() domain.LayerKind { return domain.LayerOptional }

func (l *AttestationLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	if ec.Request.Amount < l.Threshold {
		return skipped(l.ID(), "amount below attestation threshold")
	}
	if ec.Request.Attestation == "" {
		return fail(l.ID(), "ATTESTATION_REQUIRED", "attestation required above value threshold", false)
	}
	if l.Verifier == nil {
		return fail(l.ID(), "ATTESTATION_UNAVAILABLE", "no attestation verifier configured", true)
	}
	if err := l.Verifier.Verify(ctx, ec.Request.Attestation, ec.Request); err != nil {
		return fail(l.ID(), "ATTESTATION_INVALID", err.Error(), false)
	}
	return pass(l.ID())
}

// PolicyLayer runs the deterministic built-in rule set first (first violated
// rule names the rejection), then the optional rego bundle for extended
// rules.
type PolicyLayer struct {
	Rules  *PolicyRuleSet
	Engine PolicyEngine
}

func (l *PolicyLayer) ID() domain.LayerID { return domain.LayerPolicy }
func (l *PolicyLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *PolicyLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	if l.Rules != nil {
		deny, retryable, err := l.Rules.FirstViolation(ctx, ec.Request)
		if err != nil {
			return fail(l.ID(), "POLICY_UNAVAILABLE", err.Error(), true)
		}
		if deny != nil {
			return fail(l.ID(), deny.Code, deny.Message, retryable)
		}
	}
	if l.Engine != nil {
		eval, err := l.Engine.Evaluate(ctx, domain.PolicyInput{
			Request: ec.Request,
			Verification: domain.PolicyVerification{
				ProfileActive:    ec.Profile != nil && ec.Profile.Active(),
				SignatureValid:   ec.SignatureValid,
				ResourceVerified: ec.Consensus != nil,
				Fingerprint:      ec.Fingerprint,
			},
		})
		if err != nil {
			return fail(l.ID(), "POLICY_UNAVAILABLE", err.Error(), true)
		}
		if !eval.Result.Allow {
			code, msg := "POLICY_VIOLATION", "denied by policy bundle"
			if len(eval.Result.Deny) > 0 {
				if eval.Result.Deny[0].Code != "" {
					code = eval.Result.Deny[0].Code
				}
				if eval.Result.Deny[0].Message != "" {
					msg = eval.Result.Deny[0].Message
				}
			}
			return fail(l.ID(), code, msg, false)
		}
	}
	return pass(l.ID())
}

// EscrowEligibilityLayer checks the settlement side before authorization:
// the nullifier must be unused and the amount within escrow bounds.
type EscrowEligibilityLayer struct {
	Nullifiers NullifierStore
	MinAmount  uint64
	MaxAmount  uint64
}

func (l *EscrowEligibilityLayer) ID() domain.LayerID { return domain.LayerEscrow }
func (l *EscrowEligibilityLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *EscrowEligibilityLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	req := ec.Request
	if req.Amount < l.MinAmount {
		return fail(l.ID(), "AMOUNT_BELOW_MINIMUM", "amount below escrow minimum", false)
	}
	if l.MaxAmount > 0 && req.Amount > l.MaxAmount {
		return fail(l.ID(), "AMOUNT_ABOVE_MAXIMUM", "amount above escrow maximum", false)
	}
	used, err := l.Nullifiers.Used(ctx, NullifierKey(req))
	if err != nil {
		return fail(l.ID(), "NULLIFIER_UNAVAILABLE", err.Error(), true)
	}
	if used {
		return fail(l.ID(), "NULLIFIER_USED", "nullifier already consumed", false)
	}
	return pass(l.ID())
}

// NullifierKey is the one-time-use key an attempt settles under. A request
// may carry its own nullifier; otherwise it is derived from the subject.
func NullifierKey(req domain.VerificationRequest) string {
	if req.Nullifier != "" {
		return req.Nullifier
	}
	sum := sha256.Sum256([]byte(req.RequesterRef + "|" + req.TargetRef + "|" + req.Asset))
	return hex.EncodeToString(sum[:])
}

package usecase

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Resolver obtains one fact from quorum across independent providers.
type Resolver interface {
	Resolve(ctx context.Context, query domain.QuorumQuery) (domain.ConsensusResult, error)
}

type RegistryRepository interface {
	GetProfile(ctx context.Context, ref string) (*domain.Profile, error)
}

// FingerprintTable is the read-only, version-pinned expected-fingerprint
// snapshot loaded at startup.
type FingerprintTable interface {
	Lookup(targetRef string, chainID uint64) (*domain.ResourceFingerprint, bool)
}

type CryptoService interface {
	Canonicalize(payload any) ([]byte, error)
	Sign(priv ed25519.PrivateKey, payload any) (string, error)
	Verify(pub ed25519.PublicKey, payload any, sigB64 string) error
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type AttestationVerifier interface {
	Verify(ctx context.Context, token string, req domain.VerificationRequest) error
}

// NullifierStore tracks one-time-use keys. A consumed key is permanently
// unusable.
type NullifierStore interface {
	Used(ctx context.Context, key string) (bool, error)
	Consume(ctx context.Context, key string) error
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
}

type AttemptRepository interface {
	Save(ctx context.Context, verdict domain.Verdict) error
}

// ChainMetrics observes layer and verdict outcomes. Implementations must be
// cheap; they run on the evaluation path.
type ChainMetrics interface {
	ObserveLayer(layer domain.LayerID, outcome domain.LayerOutcome, elapsed time.Duration)
	ObserveVerdict(approved bool)
}

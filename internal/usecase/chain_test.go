package usecase

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	cryptoinfra "github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/crypto"
)

type scriptedLayer struct {
	id       domain.LayerID
	result   domain.LayerResult
	panicMsg string
	delay    time.Duration
	calls    *[]domain.LayerID
}

func (l *scriptedLayer) ID() domain.LayerID     { return l.id }
func (l *scriptedLayer) Kind() domain.LayerKind { return domain.LayerRequired }

func (l *scriptedLayer) Evaluate(ctx context.Context, ec *EvalContext) domain.LayerResult {
	if l.calls != nil {
		*l.calls = append(*l.calls, l.id)
	}
	if l.panicMsg != "" {
		panic(l.panicMsg)
	}
	if l.delay > 0 {
		// Deliberately ignores ctx: a hung layer does not cooperate.
		time.Sleep(l.delay)
	}
	return l.result
}

func passingLayer(id domain.LayerID, calls *[]domain.LayerID) *scriptedLayer {
	return &scriptedLayer{id: id, result: domain.LayerResult{LayerID: id, Outcome: domain.OutcomePass}, calls: calls}
}

type capturingAttempts struct {
	verdicts []domain.Verdict
}

func (r *capturingAttempts) Save(ctx context.Context, verdict domain.Verdict) error {
	r.verdicts = append(r.verdicts, verdict)
	return nil
}

func newTestChain(t *testing.T, layers []Layer) (*Chain, ed25519.PublicKey, *capturingAttempts) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	attempts := &capturingAttempts{}
	chain := &Chain{
		Layers:       layers,
		LayerTimeout: 50 * time.Millisecond,
		Generator: &EnvelopeGenerator{
			Crypto:     cryptoinfra.NewService(),
			SigningKey: priv,
			Validity:   5 * time.Minute,
			Clock:      clock,
		},
		Clock:    clock,
		Logger:   zerolog.Nop(),
		Attempts: attempts,
	}
	return chain, pub, attempts
}

func chainRequest() domain.VerificationRequest {
	return domain.VerificationRequest{
		RequestID:    "req-1",
		RequesterRef: "requester-1",
		TargetRef:    "target-1",
		ChainID:      7,
		Amount:       5000,
		Asset:        "USDt",
		ProfileRef:   "profile-1",
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestChainFullPassIssuesSignedEnvelope(t *testing.T) {
	var calls []domain.LayerID
	chain, pub, attempts := newTestChain(t, []Layer{
		passingLayer(domain.LayerRegistry, &calls),
		passingLayer(domain.LayerSignature, &calls),
		passingLayer(domain.LayerResource, &calls),
	})

	verdict := chain.Evaluate(context.Background(), chainRequest())
	if !verdict.Approved || verdict.Envelope == nil || verdict.Rejection != nil {
		t.Fatalf("verdict = %+v, want approved envelope", verdict)
	}
	if !verdict.Summary.AllPassed || len(verdict.Summary.Results) != 3 {
		t.Fatalf("summary = %+v", verdict.Summary)
	}
	if verdict.Envelope.SessionRef == "" {
		t.Fatal("envelope must carry a session ref")
	}
	if err := VerifyEnvelope(cryptoinfra.NewService(), pub, *verdict.Envelope, verdict.Envelope.IssuedAt); err != nil {
		t.Fatalf("envelope signature: %v", err)
	}
	if len(attempts.verdicts) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(attempts.verdicts))
	}
}

func TestChainHaltsAtFirstFailure(t *testing.T) {
	var calls []domain.LayerID
	failing := &scriptedLayer{
		id: domain.LayerSignature,
		result: domain.LayerResult{
			LayerID:   domain.LayerSignature,
			Outcome:   domain.OutcomeFail,
			ErrorCode: "GATEWAY_L2_SIGNATURE_INVALID",
			Detail:    "signature verification failed",
		},
		calls: &calls,
	}
	chain, pub, _ := newTestChain(t, []Layer{
		passingLayer(domain.LayerRegistry, &calls),
		failing,
		passingLayer(domain.LayerResource, &calls),
	})

	verdict := chain.Evaluate(context.Background(), chainRequest())
	if verdict.Approved || verdict.Rejection == nil {
		t.Fatalf("verdict = %+v, want denial", verdict)
	}
	if len(calls) != 2 || calls[0] != domain.LayerRegistry || calls[1] != domain.LayerSignature {
		t.Fatalf("layers evaluated = %v, halting must skip later layers", calls)
	}
	if verdict.Rejection.LayerFailed != int(domain.LayerSignature) {
		t.Fatalf("rejection cites layer %d, want %d", verdict.Rejection.LayerFailed, domain.LayerSignature)
	}
	if verdict.Rejection.ErrorCode != "GATEWAY_L2_SIGNATURE_INVALID" || verdict.Rejection.ErrorType != "signature" {
		t.Fatalf("rejection = %+v", verdict.Rejection)
	}
	if err := VerifyRejection(cryptoinfra.NewService(), pub, *verdict.Rejection); err != nil {
		t.Fatalf("rejection signature: %v", err)
	}
}

func TestChainPanicIsFailClosed(t *testing.T) {
	chain, _, _ := newTestChain(t, []Layer{
		&scriptedLayer{id: domain.LayerResource, panicMsg: "provider slice out of range"},
	})

	verdict := chain.Evaluate(context.Background(), chainRequest())
	if verdict.Approved {
		t.Fatal("a panicking layer must deny")
	}
	res := verdict.Summary.Results[0]
	if res.ErrorCode != "GATEWAY_L3_INTERNAL" || !res.Retryable {
		t.Fatalf("panic result = %+v", res)
	}
}

func TestChainLayerTimeoutIsFailClosed(t *testing.T) {
	chain, _, _ := newTestChain(t, []Layer{
		&scriptedLayer{
			id:     domain.LayerResource,
			delay:  time.Second,
			result: domain.LayerResult{LayerID: domain.LayerResource, Outcome: domain.OutcomePass},
		},
	})

	verdict := chain.Evaluate(context.Background(), chainRequest())
	if verdict.Approved {
		t.Fatal("a hung layer must deny")
	}
	res := verdict.Summary.Results[0]
	if res.ErrorCode != "GATEWAY_L3_TIMEOUT" || !res.Retryable {
		t.Fatalf("timeout result = %+v", res)
	}
}

func TestChainMalformedRequestIsPreflightDenial(t *testing.T) {
	var calls []domain.LayerID
	chain, _, _ := newTestChain(t, []Layer{passingLayer(domain.LayerRegistry, &calls)})

	verdict := chain.Evaluate(context.Background(), domain.VerificationRequest{RequestID: "req-2"})
	if verdict.Approved || verdict.Rejection == nil {
		t.Fatalf("verdict = %+v", verdict)
	}
	if verdict.Rejection.ErrorCode != "GATEWAY_L0_MALFORMED_REQUEST" {
		t.Fatalf("rejection code = %s", verdict.Rejection.ErrorCode)
	}
	if len(calls) != 0 {
		t.Fatal("no layer may run for a malformed request")
	}
}

func TestGatewayCodeShape(t *testing.T) {
	for layer := domain.LayerPreflight; layer <= domain.LayerEscrow; layer++ {
		code := domain.GatewayCode(layer, "X")
		want := fmt.Sprintf("GATEWAY_L%d_X", layer)
		if code != want {
			t.Fatalf("code = %s, want %s", code, want)
		}
	}
}

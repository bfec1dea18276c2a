package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

const testPolicy = `package tbc.policy

default allow := false

allow {
	count(deny) == 0
}

deny[d] {
	input.request.amount > data.limits.max_amount
	d := {"code": "AMOUNT_CEILING", "message": "amount exceeds bundle ceiling"}
}

deny[d] {
	not input.verification.resource_verified
	d := {"code": "RESOURCE_UNVERIFIED", "message": "resource fingerprint not verified"}
}

result := {"allow": allow, "deny": deny}
`

func writeTestBundle(t *testing.T, policy string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(policy), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{"limits":{"max_amount":1000000}}`), 0o600); err != nil {
		t.Fatalf("write data: %v", err)
	}
	return dir
}

func policyInput(amount uint64, verified bool) domain.PolicyInput {
	return domain.PolicyInput{
		Request: domain.VerificationRequest{
			RequestID: "req-1",
			TargetRef: "target-1",
			Amount:    amount,
		},
		Verification: domain.PolicyVerification{
			ProfileActive:    true,
			SignatureValid:   true,
			ResourceVerified: verified,
		},
	}
}

func TestEngineEvaluatesBundle(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngineFromBundlePath(ctx, writeTestBundle(t, testPolicy), "bundle-1")
	if err != nil {
		t.Fatalf("NewEngineFromBundlePath: %v", err)
	}
	if engine.BundleHash() == "" {
		t.Fatal("bundle hash must be recorded")
	}

	eval, err := engine.Evaluate(ctx, policyInput(5000, true))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !eval.Result.Allow || len(eval.Result.Deny) != 0 {
		t.Fatalf("clean input: %+v", eval.Result)
	}
	if eval.BundleID != "bundle-1" || eval.BundleHash != engine.BundleHash() {
		t.Fatalf("evaluation provenance = %+v", eval)
	}

	eval, err = engine.Evaluate(ctx, policyInput(2000000, false))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Result.Allow || len(eval.Result.Deny) != 2 {
		t.Fatalf("violating input: %+v", eval.Result)
	}
	// Denies come back sorted by code so verdicts are byte-stable.
	if eval.Result.Deny[0].Code != "AMOUNT_CEILING" || eval.Result.Deny[1].Code != "RESOURCE_UNVERIFIED" {
		t.Fatalf("deny order = %+v", eval.Result.Deny)
	}
}

func TestEngineRejectsForbiddenBuiltins(t *testing.T) {
	policy := `package tbc.policy

result := {"allow": false, "deny": deny}

deny[d] {
	resp := http.send({"method": "GET", "url": "http://example.invalid"})
	resp.status_code != 200
	d := {"code": "REMOTE"}
}
`
	_, err := NewEngineFromBundlePath(context.Background(), writeTestBundle(t, policy), "bundle-evil")
	if err == nil {
		t.Fatal("bundle reaching for http.send must be rejected at load")
	}
}

func TestBundleHashIsDeterministicOverNormativeFiles(t *testing.T) {
	base := fstest.MapFS{
		"policy.rego": {Data: []byte("package tbc.policy\n")},
		"data.json":   {Data: []byte(`{"limits":{}}`)},
	}
	first, err := ComputeBundleHashFromFS(base, ".")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := ComputeBundleHashFromFS(base, ".")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second {
		t.Fatal("hash must be deterministic")
	}

	// Non-normative files do not move the hash.
	withNoise := fstest.MapFS{
		"policy.rego": base["policy.rego"],
		"data.json":   base["data.json"],
		"README.md":   {Data: []byte("docs")},
		".git/HEAD":   {Data: []byte("ref")},
		"notes.txt~":  {Data: []byte("scratch")},
		"sub/.hidden": {Data: []byte("x")},
	}
	noisy, err := ComputeBundleHashFromFS(withNoise, ".")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if noisy != first {
		t.Fatal("non-normative files must not affect the hash")
	}

	// A rule change does.
	changed := fstest.MapFS{
		"policy.rego": {Data: []byte("package tbc.policy\n\ndefault allow := false\n")},
		"data.json":   base["data.json"],
	}
	differs, err := ComputeBundleHashFromFS(changed, ".")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if differs == first {
		t.Fatal("a rule change must change the hash")
	}
}

package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"math"
	"testing"
)

func TestCanonicalizeJSONSortsKeysAndStripsWhitespace(t *testing.T) {
	input := []byte(`{
		"b": 2,
		"a": {"z": "last", "y": [1, 2.5, true, null]}
	}`)
	got, err := CanonicalizeJSON(input)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"y":[1,2.5,true,null],"z":"last"},"b":2}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizeJSONRejectsTrailingData(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("trailing data must be rejected")
	}
}

func TestCanonicalizeAnyIsEncodingStable(t *testing.T) {
	first, err := CanonicalizeAny(map[string]any{"amount": uint64(5000), "asset": "USDt"})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	second, err := CanonicalizeAny([]byte(`{ "asset": "USDt", "amount": 5000 }`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("representations differ: %s vs %s", first, second)
	}
}

func TestCanonicalizeAnyNumberRendering(t *testing.T) {
	got, err := CanonicalizeAny(map[string]any{"a": float64(5000), "b": 2.5})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(got) != `{"a":5000,"b":2.5}` {
		t.Fatalf("canonical = %s, integral floats must render without a fraction", got)
	}

	if _, err := CanonicalizeAny(math.NaN()); err == nil {
		t.Fatal("NaN must be rejected")
	}
	if _, err := CanonicalizeAny(math.Inf(1)); err == nil {
		t.Fatal("infinity must be rejected")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc := NewService()
	payload := map[string]any{"target_ref": "target-1", "amount": uint64(5000)}

	sig, err := svc.Sign(priv, payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := svc.Verify(pub, payload, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}

	tampered := map[string]any{"target_ref": "target-1", "amount": uint64(5001)}
	if err := svc.Verify(pub, tampered, sig); err == nil {
		t.Fatal("tampered payload must fail verification")
	}
	if err := svc.Verify(pub, payload, ""); err == nil {
		t.Fatal("empty signature must fail verification")
	}
	if err := svc.Verify(pub, payload, "!!not-base64!!"); err == nil {
		t.Fatal("undecodable signature must fail verification")
	}
}

func TestLoadSigningKeyVariants(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	fromFull, err := LoadSigningKey(base64.StdEncoding.EncodeToString(priv), "")
	if err != nil {
		t.Fatalf("load full key: %v", err)
	}
	fromSeed, err := LoadSigningKey("", hex.EncodeToString(priv.Seed()))
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if !fromFull.Equal(fromSeed) {
		t.Fatal("full key and seed must load the same key")
	}

	if _, err := LoadSigningKey("", ""); err == nil {
		t.Fatal("missing configuration must be an error")
	}
	if _, err := LoadSigningKey(base64.StdEncoding.EncodeToString([]byte("short")), ""); err == nil {
		t.Fatal("truncated key must be rejected")
	}
}

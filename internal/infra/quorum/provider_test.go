package quorum

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

func TestValidateReplyShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"valid", `{"jsonrpc":"2.0","id":1,"result":"0xabc"}`, "0xabc", true},
		{"not json", `{"jsonrpc":`, "", false},
		{"missing version", `{"id":1,"result":"0xabc"}`, "", false},
		{"rpc error", `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"busy"}}`, "", false},
		{"numeric result", `{"jsonrpc":"2.0","id":1,"result":42}`, "", false},
		{"object result", `{"jsonrpc":"2.0","id":1,"result":{"v":"0xabc"}}`, "", false},
		{"empty result", `{"jsonrpc":"2.0","id":1,"result":""}`, "", false},
	}
	for _, tc := range cases {
		value, err := validateReply([]byte(tc.body))
		if tc.ok && (err != nil || value != tc.want) {
			t.Fatalf("%s: value=%q err=%v", tc.name, value, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected a validation error", tc.name)
		}
	}
}

func TestRPCProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0xabc"}`))
	}))
	defer srv.Close()

	p := NewRPCProvider("test", srv.URL, time.Second)
	value, err := p.Fetch(context.Background(), domain.QuorumQuery{Method: "tbc_getResourceFingerprint", ResourceRef: "t", ChainID: 1})
	if err != nil || value != "0xabc" {
		t.Fatalf("value=%q err=%v", value, err)
	}
}

func TestRPCProviderRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewRPCProvider("test", srv.URL, time.Second)
	if _, err := p.Fetch(context.Background(), domain.QuorumQuery{Method: "m"}); err == nil {
		t.Fatal("non-200 reply must be a provider fault")
	}
}

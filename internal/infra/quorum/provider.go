package quorum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// Provider retrieves a single fact from one blockchain data provider. Every
// provider is untrusted and independently fallible.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, query domain.QuorumQuery) (string, error)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// RPCProvider is a JSON-RPC 2.0 client for one provider endpoint.
type RPCProvider struct {
	name       string
	url        string
	httpClient *http.Client
}

func NewRPCProvider(name, url string, timeout time.Duration) *RPCProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RPCProvider{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *RPCProvider) Name() string {
	return p.name
}

// Fetch issues the query and validates the reply's shape before it is
// allowed anywhere near a vote. Malformed replies are provider faults.
func (p *RPCProvider) Fetch(ctx context.Context, query domain.QuorumQuery) (string, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  query.Method,
		Params:  []any{query.ResourceRef, query.ChainID},
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return validateReply(respBody)
}

// validateReply admits only structurally valid JSON-RPC replies whose result
// is a non-empty string value.
func validateReply(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("malformed reply: not JSON")
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("jsonrpc").String() != "2.0" {
		return "", fmt.Errorf("malformed reply: missing jsonrpc version")
	}
	if rpcErr := doc.Get("error"); rpcErr.Exists() {
		return "", fmt.Errorf("provider error %d: %s",
			rpcErr.Get("code").Int(), rpcErr.Get("message").String())
	}
	result := doc.Get("result")
	if !result.Exists() || result.Type != gjson.String || result.String() == "" {
		return "", fmt.Errorf("malformed reply: result is not a string value")
	}
	return result.String(), nil
}

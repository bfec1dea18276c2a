package chainwatch

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

const methodEscrowEvents = "tbc_getEscrowEvents"

// Source reads escrow events from one chain RPC endpoint, in order, from a
// cursor. The gateway never writes escrow state directly; this stream is the
// single writer.
type Source struct {
	url        string
	httpClient *http.Client
}

func NewSource(url string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *Source) Poll(ctx context.Context, cursor uint64) ([]domain.EscrowEvent, uint64, error) {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  methodEscrowEvents,
		"params":  []any{cursor},
		"id":      1,
	})
	if err != nil {
		return nil, cursor, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, cursor, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, cursor, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, cursor, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, cursor, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseEvents(body, cursor)
}

func parseEvents(body []byte, cursor uint64) ([]domain.EscrowEvent, uint64, error) {
	if !gjson.ValidBytes(body) {
		return nil, cursor, fmt.Errorf("malformed reply: not JSON")
	}
	doc := gjson.ParseBytes(body)
	if rpcErr := doc.Get("error"); rpcErr.Exists() {
		return nil, cursor, fmt.Errorf("provider error %d: %s",
			rpcErr.Get("code").Int(), rpcErr.Get("message").String())
	}
	result := doc.Get("result")
	if !result.Exists() {
		return nil, cursor, fmt.Errorf("malformed reply: no result")
	}

	next := result.Get("cursor").Uint()
	if next < cursor {
		next = cursor
	}
	var events []domain.EscrowEvent
	for _, item := range result.Get("events").Array() {
		ev := domain.EscrowEvent{
			Type:      domain.EscrowEventType(item.Get("type").String()),
			EscrowID:  item.Get("escrow_id").String(),
			Buyer:     item.Get("buyer").String(),
			Seller:    item.Get("seller").String(),
			Amount:    item.Get("amount").Uint(),
			Asset:     item.Get("asset").String(),
			Nullifier: item.Get("nullifier").String(),
		}
		if ts := item.Get("observed_at").String(); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				ev.ObservedAt = t
			}
		}
		if ev.EscrowID == "" || ev.Type == "" || ev.ObservedAt.IsZero() {
			return nil, cursor, fmt.Errorf("malformed escrow event in stream")
		}
		events = append(events, ev)
	}
	return events, next, nil
}

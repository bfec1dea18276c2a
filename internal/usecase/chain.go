package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// Chain evaluates a request through the ordered onion layers. Layers run
// strictly in sequence, never in parallel; the first FAIL halts the chain
// and the rejection cites exactly that layer.
type Chain struct {
	Layers       []Layer
	LayerTimeout time.Duration
	Generator    *EnvelopeGenerator
	Clock        Clock
	Logger       zerolog.Logger
	Attempts     AttemptRepository
	Metrics      ChainMetrics
}

// Evaluate is total: every request yields either a signed envelope or a
// signed rejection, never an unhandled fault.
func (c *Chain) Evaluate(ctx context.Context, req domain.VerificationRequest) domain.Verdict {
	now := c.Clock.Now().UTC()
	summary := domain.VerificationSummary{RequestID: req.RequestID}

	if err := req.Validate(); err != nil {
		res := domain.LayerResult{
			LayerID:   domain.LayerPreflight,
			Outcome:   domain.OutcomeFail,
			ErrorCode: domain.GatewayCode(domain.LayerPreflight, "MALFORMED_REQUEST"),
			Detail:    err.Error(),
		}
		summary.Results = append(summary.Results, res)
		summary.HaltedAt = now
		return c.deny(ctx, res, summary)
	}

	ec := &EvalContext{Request: req}
	for _, layer := range c.Layers {
		res := c.runLayer(ctx, layer, ec)
		summary.Results = append(summary.Results, res)
		if c.Metrics != nil {
			c.Metrics.ObserveLayer(res.LayerID, res.Outcome, time.Duration(res.Elapsed)*time.Millisecond)
		}
		if res.Outcome == domain.OutcomeFail {
			summary.HaltedAt = c.Clock.Now().UTC()
			c.Logger.Info().
				Str("request_id", req.RequestID).
				Int("layer", int(res.LayerID)).
				Str("error_code", res.ErrorCode).
				Msg("verification halted")
			return c.deny(ctx, res, summary)
		}
	}

	summary.HaltedAt = c.Clock.Now().UTC()
	summary.AllPassed = true

	envelope, err := c.Generator.Generate(req, summary)
	if err != nil {
		res := domain.LayerResult{
			LayerID:   domain.LayerPreflight,
			Outcome:   domain.OutcomeFail,
			ErrorCode: domain.GatewayCode(domain.LayerPreflight, "SIGNING_FAILED"),
			Detail:    err.Error(),
			Retryable: true,
		}
		return c.deny(ctx, res, summary)
	}

	verdict := domain.Verdict{Approved: true, Envelope: envelope, Summary: summary}
	c.record(ctx, verdict)
	return verdict
}

// runLayer guards one layer with its timeout and a panic recovery. A layer
// exception or timeout is that layer's FAIL, fail-closed.
func (c *Chain) runLayer(ctx context.Context, layer Layer, ec *EvalContext) domain.LayerResult {
	timeout := c.LayerTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := c.Clock.Now()
	done := make(chan domain.LayerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fail(layer.ID(), "INTERNAL", fmt.Sprintf("layer panic: %v", r), true)
			}
		}()
		done <- layer.Evaluate(lctx, ec)
	}()

	var res domain.LayerResult
	select {
	case res = <-done:
	case <-lctx.Done():
		res = fail(layer.ID(), "TIMEOUT", "layer evaluation timed out", true)
	}
	res.Elapsed = c.Clock.Now().Sub(start).Milliseconds()
	return res
}

func (c *Chain) deny(ctx context.Context, failed domain.LayerResult, summary domain.VerificationSummary) domain.Verdict {
	rejection := c.Generator.Reject(failed, summary)
	verdict := domain.Verdict{Approved: false, Rejection: rejection, Summary: summary}
	c.record(ctx, verdict)
	return verdict
}

func (c *Chain) record(ctx context.Context, verdict domain.Verdict) {
	if c.Metrics != nil {
		c.Metrics.ObserveVerdict(verdict.Approved)
	}
	if c.Attempts == nil {
		return
	}
	if err := c.Attempts.Save(ctx, verdict); err != nil {
		c.Logger.Warn().Err(err).Str("request_id", verdict.Summary.RequestID).Msg("attempt persistence failed")
	}
}

package quorum

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/metrics"
)

// AuditSink receives resolver audit events. Implementations must not block;
// the resolution path never waits on audit delivery.
type AuditSink interface {
	Emit(event domain.AuditEvent)
}

type noopSink struct{}

func (noopSink) Emit(domain.AuditEvent) {}

// Resolver reduces N independent provider answers to one trusted value via
// M-of-N consensus. It never retries on its own; callers re-issue the whole
// request on retryable faults.
type Resolver struct {
	providers       []Provider
	threshold       int
	providerTimeout time.Duration
	resolveTimeout  time.Duration
	logger          zerolog.Logger
	audit           AuditSink
}

type ResolverConfig struct {
	Providers       []Provider
	Threshold       int
	ProviderTimeout time.Duration
	ResolveTimeout  time.Duration
	Logger          zerolog.Logger
	Audit           AuditSink
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if cfg.Threshold <= 0 || cfg.Threshold > len(cfg.Providers) {
		return nil, errors.New("threshold must be within 1..N")
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 2 * time.Second
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 5 * time.Second
	}
	if cfg.Audit == nil {
		cfg.Audit = noopSink{}
	}
	return &Resolver{
		providers:       cfg.Providers,
		threshold:       cfg.Threshold,
		providerTimeout: cfg.ProviderTimeout,
		resolveTimeout:  cfg.ResolveTimeout,
		logger:          cfg.Logger,
		audit:           cfg.Audit,
	}, nil
}

// Resolve queries all N providers concurrently and suspends until every
// provider answered, its per-provider timeout fired, or the overall deadline
// was reached, whichever is first. Faulted providers are excluded from
// voting; they never count for or against a value.
func (r *Resolver) Resolve(ctx context.Context, query domain.QuorumQuery) (domain.ConsensusResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.resolveTimeout)
	defer cancel()

	replies := make(chan domain.QuorumResponse, len(r.providers))
	for _, p := range r.providers {
		go func(p Provider) {
			pctx, pcancel := context.WithTimeout(ctx, r.providerTimeout)
			defer pcancel()
			start := time.Now()
			value, err := p.Fetch(pctx, query)
			resp := domain.QuorumResponse{
				Provider: p.Name(),
				Latency:  time.Since(start),
			}
			if err != nil {
				resp.Err = err.Error()
			} else {
				resp.Value = value
			}
			replies <- resp
		}(p)
	}

	collected := make([]domain.QuorumResponse, 0, len(r.providers))
collect:
	for range r.providers {
		select {
		case resp := <-replies:
			collected = append(collected, resp)
		case <-ctx.Done():
			// Providers still outstanding at the deadline count as faults.
			break collect
		}
	}

	votes := make(map[string]int)
	valid := 0
	for _, resp := range collected {
		ev := r.logReply(query, resp)
		r.audit.Emit(ev)
		if resp.Valid() {
			votes[resp.Value]++
			valid++
		} else {
			metrics.RecordProviderFault(resp.Provider)
		}
	}

	result := tallyVotes(votes, r.threshold, valid)
	result.Dissenters = dissenters(collected, result.Value)

	r.logger.Info().
		Str("method", query.Method).
		Str("resource_ref", query.ResourceRef).
		Str("value", result.Value).
		Int("support", result.SupportCount).
		Int("threshold", r.threshold).
		Int("valid_replies", valid).
		Strs("dissenters", result.Dissenters).
		Bool("quorum_met", result.QuorumMet).
		Msg("quorum decision")
	r.audit.Emit(domain.AuditEvent{
		EventType: domain.AuditEventQuorumResolved,
		TargetID:  query.ResourceRef,
		Result:    auditResult(result.QuorumMet),
		Payload: map[string]any{
			"value":         result.Value,
			"support":       result.SupportCount,
			"threshold":     r.threshold,
			"valid_replies": valid,
			"dissenters":    result.Dissenters,
		},
	})

	if valid == 0 {
		metrics.RecordQuorumResolution("no_valid_replies")
		return domain.ConsensusResult{}, &domain.QuorumError{
			Kind:      domain.QuorumNoValidReplies,
			Threshold: r.threshold,
		}
	}
	if !result.QuorumMet {
		metrics.RecordQuorumResolution("insufficient_quorum")
		return domain.ConsensusResult{}, &domain.QuorumError{
			Kind:         domain.QuorumInsufficient,
			SupportCount: result.SupportCount,
			Threshold:    r.threshold,
		}
	}
	metrics.RecordQuorumResolution("quorum")
	return result, nil
}

// tallyVotes picks the most-supported value. A tie at the top count is not
// quorum: the candidate must be unique.
func tallyVotes(votes map[string]int, threshold, valid int) domain.ConsensusResult {
	top, topCount, tied := "", 0, false
	for value, count := range votes {
		switch {
		case count > topCount:
			top, topCount, tied = value, count, false
		case count == topCount:
			tied = true
		}
	}
	met := topCount >= threshold && !tied
	result := domain.ConsensusResult{
		SupportCount: topCount,
		Threshold:    threshold,
		ValidReplies: valid,
		QuorumMet:    met,
	}
	if met {
		result.Value = top
	}
	return result
}

func dissenters(replies []domain.QuorumResponse, winner string) []string {
	if winner == "" {
		return nil
	}
	var out []string
	for _, resp := range replies {
		if resp.Valid() && resp.Value != winner {
			out = append(out, resp.Provider)
		}
	}
	return out
}

func (r *Resolver) logReply(query domain.QuorumQuery, resp domain.QuorumResponse) domain.AuditEvent {
	ev := domain.AuditEvent{
		EventType: domain.AuditEventProviderFault,
		TargetID:  resp.Provider,
		Result:    domain.AuditResultFailure,
		ErrorCode: "PROVIDER_FAULT",
		Payload: map[string]any{
			"method":     query.Method,
			"latency_ms": resp.Latency.Milliseconds(),
			"error":      resp.Err,
		},
	}
	if resp.Valid() {
		r.logger.Debug().
			Str("provider", resp.Provider).
			Dur("latency", resp.Latency).
			Msg("provider reply")
		return domain.AuditEvent{
			EventType: domain.AuditEventQuorumResolved,
			TargetID:  resp.Provider,
			Result:    domain.AuditResultSuccess,
			Payload: map[string]any{
				"method":     query.Method,
				"latency_ms": resp.Latency.Milliseconds(),
			},
		}
	}
	r.logger.Warn().
		Str("provider", resp.Provider).
		Dur("latency", resp.Latency).
		Str("error", resp.Err).
		Msg("provider fault excluded from voting")
	return ev
}

func auditResult(ok bool) domain.AuditResult {
	if ok {
		return domain.AuditResultSuccess
	}
	return domain.AuditResultFailure
}

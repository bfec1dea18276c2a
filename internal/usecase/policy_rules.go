package usecase

import (
	"context"
	"time"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// PolicyRuleSet is the deterministic built-in rule table for layer 5. Rules
// are evaluated in a fixed order; the first violation names the rejection.
type PolicyRuleSet struct {
	Rules   domain.PolicyRules
	Limiter domain.RateLimiter
}

// FirstViolation returns the first violated rule, whether a retry with the
// same input could succeed, and an infrastructure error if the rule table
// could not be consulted (fail-closed for the caller).
func (s *PolicyRuleSet) FirstViolation(ctx context.Context, req domain.VerificationRequest) (*domain.PolicyDeny, bool, error) {
	if len(s.Rules.Whitelist) > 0 && !contains(s.Rules.Whitelist, req.TargetRef) {
		return &domain.PolicyDeny{
			Code:    "NOT_WHITELISTED",
			Message: "target is not on the whitelist",
		}, false, nil
	}
	if s.Rules.ValueCeiling > 0 && req.Amount > s.Rules.ValueCeiling {
		return &domain.PolicyDeny{
			Code:    "VALUE_CEILING_EXCEEDED",
			Message: "amount exceeds the configured value ceiling",
		}, false, nil
	}
	if s.Limiter != nil && s.Rules.RateLimitRequests > 0 {
		window := time.Duration(s.Rules.RateLimitWindowSecs) * time.Second
		decision, err := s.Limiter.Allow(ctx, "policy:"+req.ProfileRef, s.Rules.RateLimitRequests, window)
		if err != nil {
			return nil, false, err
		}
		if !decision.Allowed {
			return &domain.PolicyDeny{
				Code:    "RATE_LIMITED",
				Message: "profile exceeded its request rate",
			}, true, nil
		}
	}
	if req.Jurisdiction != "" && contains(s.Rules.BlockedJurisdictions, req.Jurisdiction) {
		return &domain.PolicyDeny{
			Code:    "JURISDICTION_BLOCKED",
			Message: "jurisdiction is sanctioned",
		}, false, nil
	}
	return nil, false, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

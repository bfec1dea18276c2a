package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

func ruleSet(limiter domain.RateLimiter) *PolicyRuleSet {
	return &PolicyRuleSet{
		Rules: domain.PolicyRules{
			Whitelist:            []string{"target-1"},
			ValueCeiling:         10000,
			RateLimitRequests:    5,
			RateLimitWindowSecs:  60,
			BlockedJurisdictions: []string{"XX"},
		},
		Limiter: limiter,
	}
}

func TestFirstViolationOrder(t *testing.T) {
	rules := ruleSet(&staticLimiter{allowed: true})

	// A request violating every rule reports the whitelist first.
	req := chainRequest()
	req.TargetRef = "target-other"
	req.Amount = 999999
	req.Jurisdiction = "XX"
	deny, retryable, err := rules.FirstViolation(context.Background(), req)
	if err != nil || deny == nil || deny.Code != "NOT_WHITELISTED" || retryable {
		t.Fatalf("deny=%+v retryable=%t err=%v", deny, retryable, err)
	}

	req.TargetRef = "target-1"
	deny, _, err = rules.FirstViolation(context.Background(), req)
	if err != nil || deny == nil || deny.Code != "VALUE_CEILING_EXCEEDED" {
		t.Fatalf("deny=%+v err=%v", deny, err)
	}

	req.Amount = 5000
	deny, _, err = rules.FirstViolation(context.Background(), req)
	if err != nil || deny == nil || deny.Code != "JURISDICTION_BLOCKED" {
		t.Fatalf("deny=%+v err=%v", deny, err)
	}

	req.Jurisdiction = ""
	deny, _, err = rules.FirstViolation(context.Background(), req)
	if err != nil || deny != nil {
		t.Fatalf("clean request: deny=%+v err=%v", deny, err)
	}
}

func TestRateLimitDenialIsRetryable(t *testing.T) {
	rules := ruleSet(&staticLimiter{allowed: false})
	deny, retryable, err := rules.FirstViolation(context.Background(), chainRequest())
	if err != nil || deny == nil || deny.Code != "RATE_LIMITED" {
		t.Fatalf("deny=%+v err=%v", deny, err)
	}
	if !retryable {
		t.Fatal("rate limiting is a retryable condition")
	}
}

func TestLimiterFaultFailsClosed(t *testing.T) {
	rules := ruleSet(&staticLimiter{err: errors.New("redis down")})
	deny, _, err := rules.FirstViolation(context.Background(), chainRequest())
	if err == nil || deny != nil {
		t.Fatalf("limiter fault must surface an error, got deny=%+v err=%v", deny, err)
	}
}

package domain

import (
	"fmt"
	"time"
)

// QuorumQuery names a single fact to retrieve from N independent providers.
type QuorumQuery struct {
	Method      string `json:"method"`
	ResourceRef string `json:"resource_ref"`
	ChainID     uint64 `json:"chain_id"`
}

// QuorumResponse is one provider's answer. Responses live only for the
// duration of a single resolve call.
type QuorumResponse struct {
	Provider string        `json:"provider"`
	Value    string        `json:"value,omitempty"`
	Err      string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency"`
}

func (r QuorumResponse) Valid() bool {
	return r.Err == "" && r.Value != ""
}

// ConsensusResult reduces a set of provider responses to one trusted value.
type ConsensusResult struct {
	Value        string `json:"value"`
	SupportCount int    `json:"support_count"`
	Threshold    int    `json:"threshold"`
	ValidReplies int    `json:"valid_replies"`
	QuorumMet    bool   `json:"quorum_met"`
	Dissenters   []string `json:"dissenters,omitempty"`
}

type QuorumErrorKind string

const (
	QuorumInsufficient   QuorumErrorKind = "INSUFFICIENT_QUORUM"
	QuorumNoValidReplies QuorumErrorKind = "NO_VALID_REPLIES"
	QuorumCancelled      QuorumErrorKind = "CANCELLED"
)

// QuorumError is a hard failure of one resolve attempt. Provider faults are
// retryable by re-issuing the whole request; the resolver never retries.
type QuorumError struct {
	Kind         QuorumErrorKind
	SupportCount int
	Threshold    int
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("quorum %s: support %d of required %d", e.Kind, e.SupportCount, e.Threshold)
}

func (e *QuorumError) Retryable() bool {
	return true
}

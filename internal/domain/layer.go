package domain

import (
	"fmt"
	"time"
)

type LayerID int

const (
	LayerPreflight   LayerID = 0
	LayerRegistry    LayerID = 1
	LayerSignature   LayerID = 2
	LayerResource    LayerID = 3
	LayerAttestation LayerID = 4
	LayerPolicy      LayerID = 5
	LayerEscrow      LayerID = 6
)

type LayerKind string

const (
	LayerRequired LayerKind = "REQUIRED"
	LayerOptional LayerKind = "OPTIONAL"
)

type LayerOutcome string

const (
	OutcomePass    LayerOutcome = "PASS"
	OutcomeFail    LayerOutcome = "FAIL"
	OutcomeSkipped LayerOutcome = "SKIPPED"
)

// LayerResult records one layer's verdict for one request.
type LayerResult struct {
	LayerID   LayerID      `json:"layer_id"`
	Outcome   LayerOutcome `json:"outcome"`
	ErrorCode string       `json:"error_code,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	Elapsed   int64        `json:"elapsed_ms,omitempty"`
}

// VerificationSummary is the ordered trail of layer results for one attempt.
// It is append-only while the chain runs and immutable once the chain halts.
type VerificationSummary struct {
	RequestID string        `json:"request_id"`
	Results   []LayerResult `json:"results"`
	HaltedAt  time.Time     `json:"halted_at"`
	AllPassed bool          `json:"all_passed"`
}

func (s VerificationSummary) Result(id LayerID) (LayerResult, bool) {
	for _, r := range s.Results {
		if r.LayerID == id {
			return r, true
		}
	}
	return LayerResult{}, false
}

// GatewayCode builds the canonical error code shape GATEWAY_L{layer}_{TYPE}.
func GatewayCode(layer LayerID, kind string) string {
	return fmt.Sprintf("GATEWAY_L%d_%s", layer, kind)
}

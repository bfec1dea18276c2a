package domain

import "time"

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

type AuditEventType string

const (
	AuditEventVerdictIssued    AuditEventType = "gateway.verdict_issued"
	AuditEventQuorumResolved   AuditEventType = "quorum.resolved"
	AuditEventProviderFault    AuditEventType = "quorum.provider_fault"
	AuditEventEscrowTransition AuditEventType = "escrow.transition"
	AuditEventEscrowSettled    AuditEventType = "escrow.settled"
	AuditEventProfileCreated   AuditEventType = "registry.profile_created"
)

// AuditEvent is one append-only audit trail entry.
type AuditEvent struct {
	ID        string         `json:"id"`
	EventType AuditEventType `json:"event_type"`
	TargetID  string         `json:"target_id"`
	Result    AuditResult    `json:"result"`
	ErrorCode string         `json:"error_code,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

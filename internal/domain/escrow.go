package domain

import "time"

type EscrowState string

const (
	EscrowNone               EscrowState = "NONE"
	EscrowCommitted          EscrowState = "COMMITTED"
	EscrowAccepted           EscrowState = "ACCEPTED"
	EscrowFulfilled          EscrowState = "FULFILLED"
	EscrowFulfillmentExpired EscrowState = "FULFILLMENT_EXPIRED"
	EscrowExpired            EscrowState = "EXPIRED"
	EscrowClaimed            EscrowState = "CLAIMED"
	EscrowReleased           EscrowState = "RELEASED"
	EscrowWithdrawn          EscrowState = "WITHDRAWN"
	EscrowReverted           EscrowState = "REVERTED"
)

// Terminal states accept no further transitions.
func (s EscrowState) Terminal() bool {
	switch s {
	case EscrowClaimed, EscrowReleased, EscrowWithdrawn, EscrowReverted:
		return true
	}
	return false
}

type FinalStatus string

const (
	FinalComplete FinalStatus = "complete"
	FinalClaimed  FinalStatus = "claimed"
	FinalRefunded FinalStatus = "refunded"
	FinalReverted FinalStatus = "reverted"
	FinalTimeout  FinalStatus = "timeout"
)

// EscrowNotification is emitted exactly once per record, at the terminal
// transition.
type EscrowNotification struct {
	FinalStatus FinalStatus `json:"final_status"`
	EscrowID    string      `json:"escrow_id"`
	Timestamp   time.Time   `json:"timestamp"`
}

type EscrowEventType string

const (
	EscrowEventCommit   EscrowEventType = "commit"
	EscrowEventAccept   EscrowEventType = "accept"
	EscrowEventFulfill  EscrowEventType = "fulfill"
	EscrowEventClaim    EscrowEventType = "claim"
	EscrowEventWithdraw EscrowEventType = "withdraw"
	EscrowEventRevert   EscrowEventType = "revert"
)

// EscrowEvent is one observed on-chain effect. Events are the only thing
// that mutates a record.
type EscrowEvent struct {
	Type       EscrowEventType `json:"type"`
	EscrowID   string          `json:"escrow_id"`
	Buyer      string          `json:"buyer,omitempty"`
	Seller     string          `json:"seller,omitempty"`
	Amount     uint64          `json:"amount,omitempty"`
	Asset      string          `json:"asset,omitempty"`
	Nullifier  string          `json:"nullifier,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
}

// EscrowWindows are the configured default time windows. Deadlines are
// computed once at the triggering transition and stored as absolute
// timestamps, never recomputed from elapsed time.
type EscrowWindows struct {
	Acceptance  time.Duration
	Fulfillment time.Duration
	Claim       time.Duration
}

// EscrowRecord tracks a single value transfer's settlement lifecycle.
type EscrowRecord struct {
	ID        string      `json:"escrow_id"`
	Buyer     string      `json:"buyer"`
	Seller    string      `json:"seller"`
	Amount    uint64      `json:"amount"`
	Asset     string      `json:"asset"`
	Nullifier string      `json:"nullifier,omitempty"`
	State     EscrowState `json:"state"`
	Lock      bool        `json:"withdrawal_lock"`

	CreatedAt           time.Time `json:"created_at"`
	AcceptanceDeadline  time.Time `json:"acceptance_deadline"`
	FulfillmentDeadline time.Time `json:"fulfillment_deadline,omitempty"`
	ClaimDeadline       time.Time `json:"claim_deadline,omitempty"`

	RelockCount    int         `json:"relock_count"`
	DiscountIssued bool        `json:"discount_issued"`
	FinalStatus    FinalStatus `json:"final_status,omitempty"`
	SettledAt      time.Time   `json:"settled_at,omitempty"`
}

// NewEscrowRecord builds a record from an observed commit. The acceptance
// deadline is fixed here, once.
func NewEscrowRecord(ev EscrowEvent, windows EscrowWindows) (*EscrowRecord, error) {
	if ev.Type != EscrowEventCommit || ev.EscrowID == "" {
		return nil, ErrInvalidTransition
	}
	return &EscrowRecord{
		ID:                 ev.EscrowID,
		Buyer:              ev.Buyer,
		Seller:             ev.Seller,
		Amount:             ev.Amount,
		Asset:              ev.Asset,
		Nullifier:          ev.Nullifier,
		State:              EscrowCommitted,
		Lock:               true,
		CreatedAt:          ev.ObservedAt,
		AcceptanceDeadline: ev.ObservedAt.Add(windows.Acceptance),
	}, nil
}

// AdvanceClock materializes every deadline transition that is due at now.
// It returns a notification if the record reached a terminal state.
// Idempotent: re-evaluating at the same instant changes nothing.
func (r *EscrowRecord) AdvanceClock(now time.Time) *EscrowNotification {
	if r.State.Terminal() {
		return nil
	}
	switch r.State {
	case EscrowCommitted:
		if !now.Before(r.AcceptanceDeadline) {
			r.State = EscrowExpired
			r.Lock = false
		}
	case EscrowAccepted:
		if !now.Before(r.FulfillmentDeadline) {
			r.State = EscrowFulfillmentExpired
			r.Lock = false
		}
	case EscrowFulfilled:
		if !now.Before(r.ClaimDeadline) {
			return r.settle(EscrowReleased, FinalComplete, now)
		}
	}
	return nil
}

// Apply performs one observed transition. Deadline transitions that are due
// must be materialized first (AdvanceClock) so no event races past a TTL
// boundary check.
func (r *EscrowRecord) Apply(ev EscrowEvent, windows EscrowWindows) (*EscrowNotification, error) {
	if r.State.Terminal() {
		return nil, ErrEscrowTerminal
	}
	now := ev.ObservedAt
	switch ev.Type {
	case EscrowEventCommit:
		return nil, ErrInvalidTransition

	case EscrowEventAccept:
		if r.State != EscrowCommitted {
			return nil, ErrInvalidTransition
		}
		r.State = EscrowAccepted
		r.Lock = true
		r.FulfillmentDeadline = now.Add(windows.Fulfillment)
		return nil, nil

	case EscrowEventFulfill:
		switch r.State {
		case EscrowAccepted:
			r.State = EscrowFulfilled
			r.ClaimDeadline = now.Add(windows.Claim)
			return nil, nil
		case EscrowFulfillmentExpired:
			// Late fulfillment: the single legal re-entry into a locked
			// condition. A compensating discount is issued to the buyer.
			r.State = EscrowFulfilled
			r.Lock = true
			r.RelockCount++
			r.DiscountIssued = true
			r.ClaimDeadline = now.Add(windows.Claim)
			return nil, nil
		}
		return nil, ErrInvalidTransition

	case EscrowEventClaim:
		if r.State != EscrowFulfilled {
			return nil, ErrInvalidTransition
		}
		return r.settle(EscrowClaimed, FinalClaimed, now), nil

	case EscrowEventWithdraw:
		if !WithdrawalAllowed(r.State, now, r.AcceptanceDeadline, r.FulfillmentDeadline, r.Lock) {
			return nil, ErrWithdrawalLocked
		}
		status := FinalRefunded
		if r.State == EscrowFulfillmentExpired {
			status = FinalTimeout
		}
		return r.settle(EscrowWithdrawn, status, now), nil

	case EscrowEventRevert:
		// Non-discretionary execution failure only; legal from the three
		// funded, locked states.
		switch r.State {
		case EscrowCommitted, EscrowAccepted, EscrowFulfilled:
			return r.settle(EscrowReverted, FinalReverted, now), nil
		}
		return nil, ErrInvalidTransition
	}
	return nil, ErrInvalidTransition
}

func (r *EscrowRecord) settle(state EscrowState, status FinalStatus, now time.Time) *EscrowNotification {
	r.State = state
	r.FinalStatus = status
	r.SettledAt = now
	return &EscrowNotification{
		FinalStatus: status,
		EscrowID:    r.ID,
		Timestamp:   now,
	}
}

// WithdrawalAllowed is the pure use-time eligibility check. A record is
// withdrawable iff its lock is released for the current state; a lock whose
// releasing deadline has already elapsed counts as released even when the
// deadline transition has not yet been materialized.
func WithdrawalAllowed(state EscrowState, now time.Time, acceptanceDeadline, fulfillmentDeadline time.Time, lock bool) bool {
	if state.Terminal() {
		return false
	}
	if !lock {
		return true
	}
	switch state {
	case EscrowCommitted:
		return !now.Before(acceptanceDeadline)
	case EscrowAccepted:
		return !now.Before(fulfillmentDeadline)
	}
	return false
}

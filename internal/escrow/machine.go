package escrow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/infra/metrics"
)

type Clock interface {
	Now() time.Time
}

type RecordRepository interface {
	Get(ctx context.Context, id string) (*domain.EscrowRecord, error)
	Save(ctx context.Context, rec *domain.EscrowRecord) error
	ListOpen(ctx context.Context) ([]*domain.EscrowRecord, error)
}

// Notifier delivers the terminal lifecycle notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.EscrowNotification) error
}

// NullifierConsumer permanently retires the one-time key of a settled record.
type NullifierConsumer interface {
	Consume(ctx context.Context, key string) error
}

type AuditSink interface {
	Emit(event domain.AuditEvent)
}

// Machine applies observed on-chain transitions to escrow records. All
// writes to one record go through its key lock, so transitions for a record
// are applied strictly in observation order and no two of them race past a
// deadline check.
type Machine struct {
	repo       RecordRepository
	windows    domain.EscrowWindows
	clock      Clock
	logger     zerolog.Logger
	notifier   Notifier
	nullifiers NullifierConsumer
	audit      AuditSink

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type MachineConfig struct {
	Repo       RecordRepository
	Windows    domain.EscrowWindows
	Clock      Clock
	Logger     zerolog.Logger
	Notifier   Notifier
	Nullifiers NullifierConsumer
	Audit      AuditSink
}

func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Repo == nil {
		return nil, errors.New("record repository is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("clock is required")
	}
	return &Machine{
		repo:       cfg.Repo,
		windows:    cfg.Windows,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		notifier:   cfg.Notifier,
		nullifiers: cfg.Nullifiers,
		audit:      cfg.Audit,
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// Apply processes one observed event. Deadline transitions due at the
// event's observation time are materialized first, so a late event can
// never sneak past an elapsed window.
func (m *Machine) Apply(ctx context.Context, ev domain.EscrowEvent) error {
	if ev.EscrowID == "" {
		return domain.ErrInvalidTransition
	}
	unlock := m.lockKey(ev.EscrowID)
	defer unlock()

	if ev.Type == domain.EscrowEventCommit {
		return m.applyCommit(ctx, ev)
	}

	rec, err := m.repo.Get(ctx, ev.EscrowID)
	if err != nil {
		return err
	}
	before := rec.State

	notif := rec.AdvanceClock(ev.ObservedAt)
	var applyErr error
	if notif == nil {
		notif, applyErr = rec.Apply(ev, m.windows)
	} else {
		// The clock advance already settled the record; the event arrived
		// too late.
		applyErr = domain.ErrEscrowTerminal
	}

	if rec.State != before {
		if err := m.repo.Save(ctx, rec); err != nil {
			return err
		}
		m.logTransition(rec, before, ev.Type)
	}
	if notif != nil {
		m.settle(ctx, rec, *notif)
	}
	return applyErr
}

func (m *Machine) applyCommit(ctx context.Context, ev domain.EscrowEvent) error {
	if existing, err := m.repo.Get(ctx, ev.EscrowID); err == nil && existing != nil {
		return domain.ErrInvalidTransition
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	rec, err := domain.NewEscrowRecord(ev, m.windows)
	if err != nil {
		return err
	}
	if err := m.repo.Save(ctx, rec); err != nil {
		return err
	}
	m.logTransition(rec, domain.EscrowNone, ev.Type)
	return nil
}

// Sweep materializes due deadline transitions across all open records. It is
// scheduled periodically; a record's deadlines are also re-checked whenever
// an event touches it, so sweeping is a liveness aid, not a correctness one.
func (m *Machine) Sweep(ctx context.Context) error {
	open, err := m.repo.ListOpen(ctx)
	if err != nil {
		return err
	}
	now := m.clock.Now()
	for _, stale := range open {
		unlock := m.lockKey(stale.ID)
		rec, err := m.repo.Get(ctx, stale.ID)
		if err != nil {
			unlock()
			continue
		}
		before := rec.State
		notif := rec.AdvanceClock(now)
		if rec.State != before {
			if err := m.repo.Save(ctx, rec); err != nil {
				unlock()
				m.logger.Warn().Err(err).Str("escrow_id", rec.ID).Msg("sweep save failed")
				continue
			}
			m.logTransition(rec, before, "sweep")
		}
		if notif != nil {
			m.settle(ctx, rec, *notif)
		}
		unlock()
	}
	return nil
}

// Snapshot returns a record plus its use-time withdrawal eligibility,
// re-evaluated at this instant and never cached.
func (m *Machine) Snapshot(ctx context.Context, id string) (*domain.EscrowRecord, bool, error) {
	rec, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	now := m.clock.Now()
	withdrawable := domain.WithdrawalAllowed(rec.State, now, rec.AcceptanceDeadline, rec.FulfillmentDeadline, rec.Lock)
	return rec, withdrawable, nil
}

// settle runs exactly once per record: the terminal transition happened
// under the key lock and terminal records accept no further transitions.
func (m *Machine) settle(ctx context.Context, rec *domain.EscrowRecord, notif domain.EscrowNotification) {
	metrics.RecordEscrowSettlement(notif.FinalStatus)
	if m.nullifiers != nil && rec.Nullifier != "" {
		if err := m.nullifiers.Consume(ctx, rec.Nullifier); err != nil {
			m.logger.Error().Err(err).Str("escrow_id", rec.ID).Msg("nullifier consume failed")
		}
	}
	if m.audit != nil {
		m.audit.Emit(domain.AuditEvent{
			EventType: domain.AuditEventEscrowSettled,
			TargetID:  rec.ID,
			Result:    domain.AuditResultSuccess,
			Payload: map[string]any{
				"final_status": string(notif.FinalStatus),
				"state":        string(rec.State),
			},
		})
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, notif); err != nil {
			m.logger.Warn().Err(err).Str("escrow_id", rec.ID).Msg("terminal notification delivery failed")
		}
	}
	m.forgetKey(rec.ID)
}

func (m *Machine) logTransition(rec *domain.EscrowRecord, before domain.EscrowState, cause any) {
	metrics.RecordEscrowTransition(rec.State)
	m.logger.Info().
		Str("escrow_id", rec.ID).
		Str("from", string(before)).
		Str("to", string(rec.State)).
		Bool("lock", rec.Lock).
		Interface("cause", cause).
		Msg("escrow transition")
	if m.audit != nil {
		m.audit.Emit(domain.AuditEvent{
			EventType: domain.AuditEventEscrowTransition,
			TargetID:  rec.ID,
			Result:    domain.AuditResultSuccess,
			Payload: map[string]any{
				"from": string(before),
				"to":   string(rec.State),
			},
		})
	}
}

func (m *Machine) lockKey(id string) func() {
	m.mu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (m *Machine) forgetKey(id string) {
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
}

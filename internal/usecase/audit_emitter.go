package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// AuditEmitter appends audit events through a bounded queue so that callers
// on the verification and resolution paths never block on audit I/O. Events
// are dropped (and counted in the log) when the queue is full.
type AuditEmitter struct {
	repo   AuditEventRepository
	clock  Clock
	logger zerolog.Logger

	queue chan domain.AuditEvent
	once  sync.Once
	done  chan struct{}
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock, logger zerolog.Logger) *AuditEmitter {
	e := &AuditEmitter{
		repo:   repo,
		clock:  clock,
		logger: logger,
		queue:  make(chan domain.AuditEvent, 256),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit enqueues without blocking.
func (e *AuditEmitter) Emit(event domain.AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.clock.Now().UTC()
	}
	select {
	case e.queue <- event:
	default:
		e.logger.Warn().Str("event_type", string(event.EventType)).Msg("audit queue full, event dropped")
	}
}

// Close drains the queue and stops the worker.
func (e *AuditEmitter) Close() {
	e.once.Do(func() {
		close(e.queue)
		<-e.done
	})
}

func (e *AuditEmitter) run() {
	defer close(e.done)
	for event := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := e.repo.Append(ctx, event); err != nil {
			e.logger.Warn().Err(err).Str("event_type", string(event.EventType)).Msg("audit append failed")
		}
		cancel()
	}
}

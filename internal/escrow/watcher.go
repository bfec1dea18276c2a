package escrow

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// EventSource yields observed on-chain escrow events in order, from a
// cursor. The single event stream is the only writer of escrow state.
type EventSource interface {
	Poll(ctx context.Context, cursor uint64) ([]domain.EscrowEvent, uint64, error)
}

// Watcher pumps the event stream into the machine. One watcher per
// deployment: events for a record must be applied in observation order.
type Watcher struct {
	source   EventSource
	machine  *Machine
	interval time.Duration
	logger   zerolog.Logger
	cursor   uint64
}

func NewWatcher(source EventSource, machine *Machine, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		source:   source,
		machine:  machine,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Watcher) drain(ctx context.Context) {
	events, next, err := w.source.Poll(ctx, w.cursor)
	if err != nil {
		w.logger.Warn().Err(err).Uint64("cursor", w.cursor).Msg("event poll failed")
		return
	}
	for _, ev := range events {
		if err := w.machine.Apply(ctx, ev); err != nil {
			// Protocol violations are rejected at the machine boundary,
			// logged, and never stall the stream.
			w.logger.Warn().Err(err).
				Str("escrow_id", ev.EscrowID).
				Str("event", string(ev.Type)).
				Msg("escrow event rejected")
		}
	}
	w.cursor = next
}

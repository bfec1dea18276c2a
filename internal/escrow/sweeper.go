package escrow

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper schedules periodic deadline sweeps over open records.
type Sweeper struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

func NewSweeper(machine *Machine, spec string, logger zerolog.Logger) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := machine.Sweep(ctx); err != nil {
			logger.Warn().Err(err).Msg("escrow sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	return &Sweeper{cron: c, logger: logger}, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

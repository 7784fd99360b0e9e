package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medisync/clinic-queue/internal/scheduler"
)

// TickWorker drives the periodic queue maintenance pass: aging-driven
// reordering, long-wait alerts and the midnight statistics rollover.
type TickWorker struct {
	scheduler    *scheduler.Scheduler
	tickInterval time.Duration
	logger       zerolog.Logger
}

func NewTickWorker(s *scheduler.Scheduler, tickInterval time.Duration, logger zerolog.Logger) *TickWorker {
	return &TickWorker{
		scheduler:    s,
		tickInterval: tickInterval,
		logger:       logger.With().Str("component", "tick_worker").Logger(),
	}
}

func (w *TickWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.tickInterval).Msg("tick worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("tick worker shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *TickWorker) tick(ctx context.Context) {
	w.scheduler.RollOverDay(ctx)

	log := w.scheduler.Tick(ctx)
	failed := 0
	for _, r := range log {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		w.logger.Warn().Int("actions", len(log)).Int("failed", failed).Msg("tick pass completed with failures")
	}
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/songzhibin97/alertflux/internal/data"
)

const DefaultPollInterval = time.Minute

// Scheduler fires the poll cycle on a fixed interval and purges expired
// dedup markers when the store supports it. Ticks that arrive while a cycle
// is still running are dropped by the ticker.
type Scheduler struct {
	pipeline      *Pipeline
	interval      time.Duration
	purger        data.Purger
	purgeInterval time.Duration
	logger        *slog.Logger
}

func NewScheduler(p *Pipeline, interval time.Duration, purger data.Purger, purgeInterval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		pipeline:      p,
		interval:      interval,
		purger:        purger,
		purgeInterval: purgeInterval,
		logger:        logger,
	}
}

// Run polls immediately, then on every tick, until ctx is done.
// Cycle failures are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var purge <-chan time.Time
	if s.purger != nil && s.purgeInterval > 0 {
		purgeTicker := time.NewTicker(s.purgeInterval)
		defer purgeTicker.Stop()
		purge = purgeTicker.C
	}

	s.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.cycle(ctx)
		case <-purge:
			s.purge(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("poll cycle panicked", "panic", r)
		}
	}()

	if _, err := s.pipeline.RunTokenCycle(ctx); err != nil {
		s.logger.Warn("poll cycle failed", "err", err)
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("failed to purge expired markers", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged expired markers", "count", n)
	}
}

// Package sweeper deactivates events whose end date has passed. The
// whole sweep is a single UPDATE, so overlapping runs cannot disagree.
package sweeper

import (
	"context"
	"time"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/repo/postgres"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/events"
	"github.com/minhhungle-offical/chua-dieu-phap-server/pkg/logger"
)

type Sweeper struct {
	repo     postgres.EventRepo
	bus      events.Publisher
	interval time.Duration
}

func New(repo postgres.EventRepo, bus events.Publisher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{repo: repo, bus: bus, interval: interval}
}

// Run sweeps immediately, then on every tick until the context is
// canceled.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Info("event sweeper started", "interval", s.interval.String())
	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("event sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deactivates all expired events and reports how many were
// touched.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	now := time.Now()
	ids, err := s.repo.DeactivateExpired(ctx, now)
	if err != nil {
		logger.Error("failed to deactivate expired events", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	logger.Info("deactivated expired events", "count", len(ids), "ids", ids)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.EventDeactivated, events.EventDeactivatedEvent{
			Count:         int64(len(ids)),
			DeactivatedAt: now,
		}); err != nil {
			logger.Error("failed to publish event", "subject", events.EventDeactivated, "error", err)
		}
	}
	return len(ids)
}

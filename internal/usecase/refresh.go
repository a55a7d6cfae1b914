package usecase

import (
	"context"
	"time"

	"github.com/kixonair/kixonair/internal/platform/logging"
)

// Refresher periodically force-rebuilds the current UTC day so the cache
// stays warm independent of request traffic. A zero interval disables it.
type Refresher struct {
	service  *FixtureService
	interval time.Duration
	logger   *logging.Logger
}

func NewRefresher(service *FixtureService, interval time.Duration, logger *logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Refresher{service: service, interval: interval, logger: logger}
}

// Run blocks until ctx is canceled. It refreshes once per interval; a
// refresh that fails only logs.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("background refresh disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("background refresh started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background refresh stopped")
			return
		case <-ticker.C:
			day, err := r.service.FixturesForDate(ctx, "today", true)
			if err != nil {
				r.logger.WarnContext(ctx, "background refresh failed", "error", err)
				continue
			}
			r.logger.DebugContext(ctx, "background refresh completed", "date", day.Date, "fixtures", len(day.Fixtures))
		}
	}
}

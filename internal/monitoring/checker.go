package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredInsightDeleter is the slice of the store the sweeper needs.
type ExpiredInsightDeleter interface {
	DeleteExpiredInsights(ctx context.Context) (int, error)
}

// Sweeper periodically evicts expired rows from the insight cache.
type Sweeper struct {
	store    ExpiredInsightDeleter
	interval time.Duration
}

// NewSweeper creates a background cache sweeper. Non-positive intervals
// default to one hour.
func NewSweeper(st ExpiredInsightDeleter, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: st, interval: interval}
}

// Run sweeps once immediately, then on every tick. It blocks until ctx is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.sweeper"))
	log.Info("starting insight cache sweeper", zap.Duration("interval", s.interval))

	s.sweep(ctx, log)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("insight cache sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, log)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, log *zap.Logger) {
	n, err := s.store.DeleteExpiredInsights(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("monitoring: sweep insight cache", zap.Error(err))
		}
		return
	}
	if n > 0 {
		log.Info("monitoring: evicted expired insights", zap.Int("deleted", n))
	}
}

package services

import (
	"context"
	"time"

	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/metrics"
)

// ExpiryService drops history older than the retention period.
type ExpiryService struct {
	log       *history.Log
	retention time.Duration
	interval  time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// NewExpiryService constructs an ExpiryService that keeps retention worth
// of history and runs every interval.
func NewExpiryService(log *history.Log, retention, interval time.Duration, l logging.Logger) *ExpiryService {
	return &ExpiryService{
		log:       log,
		retention: retention,
		interval:  interval,
		logger:    l.With("module", "expiry_service"),
		now:       time.Now,
	}
}

// ExpireOlderThan removes entries with timestamps before olderThan (unix ms)
// and returns how many were removed.
func (s *ExpiryService) ExpireOlderThan(ctx context.Context, olderThan int64) int {
	removed := s.log.ExpireEntries(olderThan)
	stats := s.log.Stats()

	metrics.ExpiredEntriesTotal.Add(float64(removed))
	metrics.RetainedEntries.Set(float64(stats.Retained))

	if removed > 0 {
		s.logger.Info(ctx, "expired history", "removed", removed, "start_index", stats.StartIndex, "retained", stats.Retained)
	}
	return removed
}

// ExpireOnce applies the retention period relative to now.
func (s *ExpiryService) ExpireOnce(ctx context.Context) int {
	return s.ExpireOlderThan(ctx, s.now().Add(-s.retention).UnixMilli())
}

// Run expires history every interval until ctx is done.
func (s *ExpiryService) Run(ctx context.Context) error {
	if s.interval <= 0 || s.retention <= 0 {
		s.logger.Info(ctx, "expiry disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.ExpireOnce(ctx)
		}
	}
}

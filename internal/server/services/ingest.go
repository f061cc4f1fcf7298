package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/metrics"
)

// NetworkView is the part of the network state ingest needs: who should see
// a change, and a way to apply the change once recorded.
type NetworkView interface {
	Recipients(change history.StateChange) []history.UserID
	Apply(change history.StateChange)
}

// EventReceiver is a source of ordered network events.
type EventReceiver interface {
	Receive(ctx context.Context) (history.Event, error)
}

// IngestService is the boundary between the event source and the history
// log. Events are recorded one at a time so each event's per-user index
// appends land before the next event's entry is added.
type IngestService struct {
	mu      sync.Mutex
	log     *history.Log
	network NetworkView
	logger  logging.Logger
}

// NewIngestService constructs an IngestService.
func NewIngestService(log *history.Log, network NetworkView, l logging.Logger) *IngestService {
	return &IngestService{
		log:     log,
		network: network,
		logger:  l.With("module", "ingest_service"),
	}
}

// Record applies ev to the network view and, if its kind is kept in history,
// stores it and indexes it for every user who saw it. It reports the new
// entry id and whether the event was stored.
func (s *IngestService) Record(ctx context.Context, ev history.Event) (history.EntryID, bool, error) {
	if ev.Details == nil {
		return 0, false, fmt.Errorf("%w: event %s has no details", common.ErrorInternal, ev.ID)
	}
	kind := string(ev.Details.Kind())

	s.mu.Lock()
	defer s.mu.Unlock()

	// recipients are computed before the change is applied so a quitting or
	// parting user still counts as a member
	recipients := s.network.Recipients(ev.Details)
	s.network.Apply(ev.Details)

	id, ok := s.log.Add(ev.Details, ev.ID, ev.Timestamp)
	if !ok {
		metrics.IngestedTotal.WithLabelValues(kind, metrics.OutcomeSkip).Inc()
		return 0, false, nil
	}

	for _, u := range recipients {
		if err := s.log.AddEntryForUser(u, id); err != nil {
			return id, true, fmt.Errorf("%w: index entry %d for %s: %v", common.ErrorInternal, id, u, err)
		}
	}

	metrics.IngestedTotal.WithLabelValues(kind, metrics.OutcomeStored).Inc()
	s.logger.Debug(ctx, "recorded", "event", ev.ID, "kind", kind, "entry", id, "recipients", len(recipients))

	return id, true, nil
}

// Consume records events from r until ctx ends or r is closed. A closed
// receiver ends consumption without error. Events that fail to record are
// logged and skipped.
func (s *IngestService) Consume(ctx context.Context, r EventReceiver) error {
	for {
		ev, err := r.Receive(ctx)
		if err != nil {
			if errors.Is(err, common.ErrChannelClosed) {
				s.logger.Info(ctx, "event feed closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive event: %w", err)
		}

		if _, _, err := s.Record(ctx, ev); err != nil {
			s.logger.Error(ctx, "failed to record event", "event", ev.ID, "error", err)
		}
	}
}

// Quiesce runs fn while no event is being recorded, so fn sees the history
// log and the network view at the same event boundary.
func (s *IngestService) Quiesce(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// Package services contains server-side business logic. This file implements
// HistoryService, which answers per-target history queries and lists the
// conversations a user has recently had.
package services

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/metrics"
)

// TargetDirectory tells the query engine which targets exist.
type TargetDirectory interface {
	Known(t history.TargetID) bool
}

// TargetTimestamp is one conversation with the time of its most recent
// message within the queried window.
type TargetTimestamp struct {
	Target    history.TargetID
	Timestamp int64
}

// HistoryService is the query engine over a history.Log.
type HistoryService struct {
	log       *history.Log
	directory TargetDirectory
	logger    logging.Logger
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(log *history.Log, dir TargetDirectory, l logging.Logger) *HistoryService {
	return &HistoryService{
		log:       log,
		directory: dir,
		logger:    l.With("module", "history_service"),
	}
}

// GetEntries returns the entries of target visible in requester's history
// that satisfy req, in chronological order.
//
// An unknown target yields common.ErrorInvalidTarget. A request the engine
// cannot serve yields a wrapped common.ErrorInternal.
func (s *HistoryService) GetEntries(ctx context.Context, requester history.UserID, target history.TargetID, req history.Request) ([]history.Entry, error) {
	started := time.Now()
	kind := req.Kind.String()

	entries, err := s.getEntries(ctx, requester, target, req)

	metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(kind, metrics.ResultError).Inc()
		s.logger.Debug(ctx, "history query failed", "requester", requester, "target", target.String(), "kind", kind, "error", err)
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues(kind, metrics.ResultOK).Inc()
	metrics.QueryEntries.Observe(float64(len(entries)))
	s.logger.Debug(ctx, "history query", "requester", requester, "target", target.String(), "kind", kind, "entries", len(entries))

	return entries, nil
}

func (s *HistoryService) getEntries(ctx context.Context, requester history.UserID, target history.TargetID, req history.Request) ([]history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.directory.Known(target) {
		return nil, fmt.Errorf("%w: %s", common.ErrorInvalidTarget, target)
	}
	if req.Limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit %d", common.ErrorInternal, req.Limit)
	}

	matches := func(e history.Entry) bool {
		t, ok := history.TargetFor(e, requester)
		return ok && t == target
	}

	switch req.Kind {
	case history.RequestLatest:
		out := s.collect(s.log.EntriesForUserReverse(requester), req.Limit, func(e history.Entry) bool {
			return matches(e) && (!req.HasTo || e.Timestamp <= req.To)
		})
		slices.Reverse(out)
		return out, nil

	case history.RequestBefore:
		out := s.collect(s.log.EntriesForUserReverse(requester), req.Limit, func(e history.Entry) bool {
			return matches(e) && e.Timestamp < req.From
		})
		slices.Reverse(out)
		return out, nil

	case history.RequestAfter:
		return s.collect(s.log.EntriesForUser(requester), req.Limit, func(e history.Entry) bool {
			return matches(e) && e.Timestamp > req.From
		}), nil

	case history.RequestAround:
		return s.around(requester, req.From, req.Limit, matches), nil

	case history.RequestBetween:
		lo, hi := min(req.From, req.To), max(req.From, req.To)
		inWindow := func(e history.Entry) bool {
			return matches(e) && e.Timestamp >= lo && e.Timestamp <= hi
		}
		if req.From <= req.To {
			return s.collect(s.log.EntriesForUser(requester), req.Limit, inWindow), nil
		}
		out := s.collect(s.log.EntriesForUserReverse(requester), req.Limit, inWindow)
		slices.Reverse(out)
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown request kind %d", common.ErrorInternal, int(req.Kind))
	}
}

// collect takes up to limit entries of seq that satisfy keep, in walk order.
func (s *HistoryService) collect(seq iter.Seq[history.Entry], limit int, keep func(history.Entry) bool) []history.Entry {
	out := make([]history.Entry, 0, min(limit, 64))
	for e := range seq {
		if !keep(e) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// around picks the limit entries nearest to ts. Candidates before ts come
// from a backward walk, candidates at or after ts from a forward walk; on
// equal distance the later entry wins.
func (s *HistoryService) around(requester history.UserID, ts int64, limit int, matches func(history.Entry) bool) []history.Entry {
	before := s.collect(s.log.EntriesForUserReverse(requester), limit, func(e history.Entry) bool {
		return matches(e) && e.Timestamp < ts
	})
	after := s.collect(s.log.EntriesForUser(requester), limit, func(e history.Entry) bool {
		return matches(e) && e.Timestamp >= ts
	})

	i, j := 0, 0
	for i+j < limit && (i < len(before) || j < len(after)) {
		switch {
		case i == len(before):
			j++
		case j == len(after):
			i++
		case ts-before[i].Timestamp < after[j].Timestamp-ts:
			i++
		default:
			j++
		}
	}

	out := make([]history.Entry, 0, i+j)
	for k := i - 1; k >= 0; k-- {
		out = append(out, before[k])
	}
	return append(out, after[:j]...)
}

// ListTargets walks user's history newest first and returns, for up to limit
// distinct conversations, the timestamp of the most recent message within
// [lower, upper]. The result is in discovery order (newest first); callers
// that present it sort it themselves.
func (s *HistoryService) ListTargets(ctx context.Context, user history.UserID, lower, upper int64, limit int) []TargetTimestamp {
	started := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("TARGETS").Observe(time.Since(started).Seconds())
	}()

	if limit <= 0 || ctx.Err() != nil {
		return nil
	}

	seen := make(map[history.TargetID]struct{})
	var out []TargetTimestamp

	for e := range s.log.EntriesForUserReverse(user) {
		if _, ok := e.Details.(history.NewMessage); !ok {
			continue
		}
		if e.Timestamp < lower || e.Timestamp > upper {
			continue
		}
		target, ok := history.TargetFor(e, user)
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, TargetTimestamp{Target: target, Timestamp: e.Timestamp})
		if len(out) == limit {
			break
		}
	}

	metrics.QueriesTotal.WithLabelValues("TARGETS", metrics.ResultOK).Inc()
	s.logger.Debug(ctx, "targets query", "user", user, "targets", len(out))

	return out
}

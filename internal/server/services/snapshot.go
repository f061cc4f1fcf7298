package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/metrics"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/revrsefr/sable/internal/server/repositories/repomanager"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
)

const snapshotVersion = 1

// NetworkState is a network view that can be saved alongside history.
type NetworkState interface {
	json.Marshaler
	json.Unmarshaler
}

// Quiescer pauses event recording while fn runs.
type Quiescer interface {
	Quiesce(fn func() error) error
}

type snapshotPayload struct {
	Version int             `json:"version"`
	History json.RawMessage `json:"history"`
	Network json.RawMessage `json:"network,omitempty"`
}

// SnapshotService persists the history log and network view through the
// configured snapshot backend and restores them at startup.
type SnapshotService struct {
	log         *history.Log
	network     NetworkState
	quiescer    Quiescer
	repomanager repomanager.RepositoryManager
	keep        int
	interval    time.Duration
	logger      logging.Logger
	now         func() time.Time
}

// NewSnapshotService constructs a SnapshotService that keeps the newest keep
// snapshots and saves every interval. q may be nil when nothing writes to
// the log concurrently.
func NewSnapshotService(log *history.Log, network NetworkState, q Quiescer, rm repomanager.RepositoryManager, keep int, interval time.Duration, l logging.Logger) *SnapshotService {
	return &SnapshotService{
		log:         log,
		network:     network,
		quiescer:    q,
		repomanager: rm,
		keep:        keep,
		interval:    interval,
		logger:      l.With("module", "snapshot_service"),
		now:         time.Now,
	}
}

func (s *SnapshotService) encode() (*models.Snapshot, error) {
	var (
		payload []byte
		stats   history.Stats
	)
	capture := func() error {
		h, err := json.Marshal(s.log)
		if err != nil {
			return err
		}
		var n []byte
		if s.network != nil {
			if n, err = s.network.MarshalJSON(); err != nil {
				return err
			}
		}
		stats = s.log.Stats()
		payload, err = json.Marshal(snapshotPayload{Version: snapshotVersion, History: h, Network: n})
		return err
	}

	var err error
	if s.quiescer != nil {
		err = s.quiescer.Quiesce(capture)
	} else {
		err = capture()
	}
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  s.now().UTC(),
		StartIndex: stats.StartIndex,
		Size:       stats.Size,
		Payload:    payload,
	}, nil
}

// Save writes a snapshot and prunes old ones in one backend transaction.
func (s *SnapshotService) Save(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.encode()
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("save", metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: encode snapshot: %v", common.ErrorInternal, err)
	}

	pruned := 0
	err = s.repomanager.WithinTx(ctx, func(ctx context.Context, repo snapshots.Repository) error {
		if err := repo.Save(ctx, snap); err != nil {
			return err
		}
		if s.keep > 0 {
			n, err := repo.Prune(ctx, s.keep)
			if err != nil {
				return err
			}
			pruned = n
		}
		return nil
	})
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("save", metrics.ResultError).Inc()
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	metrics.SnapshotsTotal.WithLabelValues("save", metrics.ResultOK).Inc()
	metrics.SnapshotBytes.Set(float64(len(snap.Payload)))
	s.logger.Info(ctx, "saved snapshot", "id", snap.ID, "start_index", snap.StartIndex, "size", snap.Size, "bytes", len(snap.Payload), "pruned", pruned)

	return snap, nil
}

// Restore loads the newest snapshot into the log and network view. It
// returns false without error when there is nothing to restore.
func (s *SnapshotService) Restore(ctx context.Context) (bool, error) {
	snap, err := s.repomanager.Snapshots().Latest(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Info(ctx, "no snapshot to restore")
		return false, nil
	}
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("restore", metrics.ResultError).Inc()
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	if err := s.decode(snap.Payload); err != nil {
		metrics.SnapshotsTotal.WithLabelValues("restore", metrics.ResultError).Inc()
		return false, fmt.Errorf("%w: snapshot %s: %v", common.ErrorInternal, snap.ID, err)
	}

	stats := s.log.Stats()
	metrics.SnapshotsTotal.WithLabelValues("restore", metrics.ResultOK).Inc()
	metrics.RetainedEntries.Set(float64(stats.Retained))
	s.logger.Info(ctx, "restored snapshot", "id", snap.ID, "created_at", snap.CreatedAt, "start_index", stats.StartIndex, "size", stats.Size, "users", stats.Users)

	return true, nil
}

func (s *SnapshotService) decode(data []byte) error {
	var p snapshotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", p.Version)
	}
	if len(p.History) == 0 {
		return errors.New("snapshot has no history")
	}

	apply := func() error {
		if err := s.log.UnmarshalJSON(p.History); err != nil {
			return err
		}
		if s.network != nil && len(p.Network) > 0 {
			return s.network.UnmarshalJSON(p.Network)
		}
		return nil
	}
	if s.quiescer != nil {
		return s.quiescer.Quiesce(apply)
	}
	return apply()
}

// Run saves a snapshot every interval and once more when ctx ends.
func (s *SnapshotService) Run(ctx context.Context) error {
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if _, err := s.Save(ctx); err != nil {
					s.logger.Error(ctx, "periodic snapshot failed", "error", err)
				}
			}
		}
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if _, err := s.Save(shutdownCtx); err != nil {
		s.logger.Error(shutdownCtx, "final snapshot failed", "error", err)
		return err
	}
	return nil
}

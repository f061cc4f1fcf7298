package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/filex"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/models"
)

const badgerPrefix = "snapshot/"

// BadgerConfig configures the embedded snapshot store.
type BadgerConfig struct {
	// Path is the database directory. Empty means in-memory.
	Path string
	// SyncWrites makes every commit durable before returning.
	SyncWrites bool
	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger logging.Logger
}

// badgerLogger adapts logging.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(context.Background(), fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir, err := filex.EnsureDir(cfg.Path)
		if err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("module", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// BadgerRepository keeps snapshots in BadgerDB under keys ordered by
// creation time.
type BadgerRepository struct {
	db *badger.DB
}

func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

type badgerRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	StartIndex uint64    `json:"start_index"`
	Size       uint64    `json:"size"`
	Payload    []byte    `json:"payload"`
}

// badgerKey sorts by creation time: nanoseconds are zero-padded to a fixed width.
func badgerKey(s *models.Snapshot) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", badgerPrefix, s.CreatedAt.UnixNano(), s.ID))
}

func (r *BadgerRepository) Save(ctx context.Context, s *models.Snapshot) error {
	value, err := json.Marshal(badgerRecord{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		StartIndex: s.StartIndex,
		Size:       s.Size,
		Payload:    s.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(s), value)
	}); err != nil {
		return fmt.Errorf("badger error: %w", err)
	}
	return nil
}

func (r *BadgerRepository) Latest(ctx context.Context) (*models.Snapshot, error) {
	var out *models.Snapshot

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// in reverse mode Seek positions at the largest key <= the seek key
		it.Seek([]byte(badgerPrefix + "\xff"))
		if !it.ValidForPrefix([]byte(badgerPrefix)) {
			return common.ErrorNotFound
		}

		return it.Item().Value(func(val []byte) error {
			var rec badgerRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			out = &models.Snapshot{
				ID:         rec.ID,
				CreatedAt:  rec.CreatedAt,
				StartIndex: rec.StartIndex,
				Size:       rec.Size,
				Payload:    rec.Payload,
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("badger error: %w", err)
	}
	return out, nil
}

func (r *BadgerRepository) Prune(ctx context.Context, keep int) (int, error) {
	var stale [][]byte

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seen := 0
		for it.Seek([]byte(badgerPrefix + "\xff")); it.ValidForPrefix([]byte(badgerPrefix)); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger error: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range stale {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("badger error: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("badger error: %w", err)
	}
	return len(stale), nil
}

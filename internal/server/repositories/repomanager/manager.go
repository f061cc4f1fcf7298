// Package repomanager picks and owns the snapshot backend: it opens the
// underlying store, runs schema migrations where the backend has a schema,
// and vends snapshots.Repository implementations bound to it.
package repomanager

import (
	"context"
	"fmt"

	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
)

// Snapshot backends.
const (
	BackendNone     = "none"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendS3       = "s3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Snapshots() snapshots.Repository
	// WithinTx runs fn with a repository whose writes commit together.
	// Backends without transactions run fn directly.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo snapshots.Repository) error) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend          string
	DatabaseDSN      string
	BadgerPath       string
	BadgerSyncWrites bool
	S3               snapshots.S3Config
}

// New opens the backend named by opts.Backend. An empty backend is
// BackendNone.
func New(ctx context.Context, opts Options, l logging.Logger) (RepositoryManager, error) {
	switch opts.Backend {
	case "", BackendNone:
		return NewNoneRepositoryManager(), nil

	case BackendPostgres:
		db, err := sqlOpen("pgx", opts.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return NewPostgresRepositoryManager(db)

	case BackendBadger:
		db, err := snapshots.OpenBadger(snapshots.BadgerConfig{
			Path:       opts.BadgerPath,
			SyncWrites: opts.BadgerSyncWrites,
			Logger:     l,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return NewBadgerRepositoryManager(db), nil

	case BackendS3:
		client, err := snapshots.NewS3Client(ctx, opts.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return NewS3RepositoryManager(client, opts.S3.Bucket, opts.S3.Prefix), nil

	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", opts.Backend)
	}
}

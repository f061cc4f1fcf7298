package repomanager

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
)

// BadgerRepositoryManager owns an embedded BadgerDB.
type BadgerRepositoryManager struct {
	db   *badger.DB
	repo *snapshots.BadgerRepository
}

func NewBadgerRepositoryManager(db *badger.DB) *BadgerRepositoryManager {
	return &BadgerRepositoryManager{db: db, repo: snapshots.NewBadgerRepository(db)}
}

// RunMigrations is a no-op; BadgerDB is schemaless.
func (m *BadgerRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *BadgerRepositoryManager) Snapshots() snapshots.Repository { return m.repo }

func (m *BadgerRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo snapshots.Repository) error) error {
	return fn(ctx, m.repo)
}

func (m *BadgerRepositoryManager) Close() error { return m.db.Close() }

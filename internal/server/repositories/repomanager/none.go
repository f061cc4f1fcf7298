package repomanager

import (
	"context"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
)

// NoneRepositoryManager discards snapshots. History lives only in memory.
type NoneRepositoryManager struct{}

func NewNoneRepositoryManager() *NoneRepositoryManager { return &NoneRepositoryManager{} }

func (NoneRepositoryManager) RunMigrations(context.Context) error { return nil }

func (NoneRepositoryManager) Snapshots() snapshots.Repository { return discard{} }

func (NoneRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo snapshots.Repository) error) error {
	return fn(ctx, discard{})
}

func (NoneRepositoryManager) Close() error { return nil }

type discard struct{}

func (discard) Save(context.Context, *models.Snapshot) error { return nil }

func (discard) Latest(context.Context) (*models.Snapshot, error) { return nil, common.ErrorNotFound }

func (discard) Prune(context.Context, int) (int, error) { return 0, nil }

package repomanager

import (
	"context"

	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
)

// S3RepositoryManager stores snapshots in an S3 bucket.
type S3RepositoryManager struct {
	repo *snapshots.S3Repository
}

func NewS3RepositoryManager(client snapshots.S3API, bucket, prefix string) *S3RepositoryManager {
	return &S3RepositoryManager{repo: snapshots.NewS3Repository(client, bucket, prefix)}
}

func (m *S3RepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *S3RepositoryManager) Snapshots() snapshots.Repository { return m.repo }

func (m *S3RepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo snapshots.Repository) error) error {
	return fn(ctx, m.repo)
}

func (m *S3RepositoryManager) Close() error { return nil }

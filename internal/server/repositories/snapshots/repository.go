// Package snapshots declares the repository contract for persisted history
// snapshots and its PostgreSQL, BadgerDB and S3 implementations.
package snapshots

import (
	"context"
	"time"

	"github.com/revrsefr/sable/internal/server/models"
)

// Repository stores serialized history snapshots.
type Repository interface {
	// Save stores s. IDs are unique; CreatedAt orders snapshots.
	Save(ctx context.Context, s *models.Snapshot) error
	// Latest returns the newest snapshot or common.ErrorNotFound.
	Latest(ctx context.Context) (*models.Snapshot, error)
	// Prune deletes all but the newest keep snapshots and returns how many
	// were deleted.
	Prune(ctx context.Context, keep int) (int, error)
}

// Presigner is implemented by repositories that can hand out a temporary
// download link for a stored snapshot.
type Presigner interface {
	PresignGet(ctx context.Context, s *models.Snapshot, ttl time.Duration) (string, error)
}

package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/dbx"
	"github.com/revrsefr/sable/internal/server/models"
)

// PostgresRepository keeps snapshots in the history_snapshots table over
// dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts s.
func (r *PostgresRepository) Save(ctx context.Context, s *models.Snapshot) error {
	query := `
		INSERT INTO history_snapshots (id, created_at, start_index, size, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.CreatedAt, int64(s.StartIndex), int64(s.Size), s.Payload); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

// Latest returns the most recently created snapshot.
// If the table is empty, it returns common.ErrorNotFound.
func (r *PostgresRepository) Latest(ctx context.Context) (*models.Snapshot, error) {
	query := `
		SELECT id, created_at, start_index, size, payload
		FROM history_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`
	s := &models.Snapshot{}
	var start, size int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.ID, &s.CreatedAt, &start, &size, &s.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.StartIndex, s.Size = uint64(start), uint64(size)
	return s, nil
}

// Prune removes every snapshot except the newest keep.
func (r *PostgresRepository) Prune(ctx context.Context, keep int) (int, error) {
	query := `
		DELETE FROM history_snapshots
		WHERE id NOT IN (
			SELECT id FROM history_snapshots
			ORDER BY created_at DESC
			LIMIT $1
		)
	`
	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger          { return n }

func TestNew_None(t *testing.T) {
	for _, backend := range []string{"", BackendNone} {
		m, err := New(context.Background(), Options{Backend: backend}, nopLogger{})
		require.NoError(t, err)
		require.IsType(t, &NoneRepositoryManager{}, m)

		ctx := context.Background()
		require.NoError(t, m.RunMigrations(ctx))
		require.NoError(t, m.WithinTx(ctx, func(ctx context.Context, repo snapshots.Repository) error {
			return repo.Save(ctx, &models.Snapshot{ID: "x"})
		}))
		_, err = m.Snapshots().Latest(ctx)
		assert.ErrorIs(t, err, common.ErrorNotFound)
		n, err := m.Snapshots().Prune(ctx, 0)
		assert.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, m.Close())
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "floppy"}, nopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floppy")
}

func TestNew_BadgerInMemory(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, Options{Backend: BackendBadger}, nopLogger{})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.RunMigrations(ctx))
	s := &models.Snapshot{ID: "a", CreatedAt: time.Now(), Size: 1, Payload: []byte("{}")}
	require.NoError(t, m.WithinTx(ctx, func(ctx context.Context, repo snapshots.Repository) error {
		return repo.Save(ctx, s)
	}))

	got, err := m.Snapshots().Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
}

func TestNew_S3(t *testing.T) {
	m, err := New(context.Background(), Options{
		Backend: BackendS3,
		S3: snapshots.S3Config{
			Region:       "us-east-1",
			User:         "minioadmin",
			Password:     "minioadmin",
			BaseEndpoint: "http://127.0.0.1:9000",
			Bucket:       "sable",
			Prefix:       "history",
		},
	}, nopLogger{})
	require.NoError(t, err)
	require.IsType(t, &S3RepositoryManager{}, m)
	assert.NoError(t, m.RunMigrations(context.Background()))
	_, ok := m.Snapshots().(snapshots.Presigner)
	assert.True(t, ok, "S3 snapshots can be presigned")
	assert.NoError(t, m.Close())
}

func TestNew_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}

	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}

	mock.ExpectPing()
	mock.ExpectClose()

	m, err := New(context.Background(), Options{Backend: BackendPostgres, DatabaseDSN: "postgres://sable"}, nopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, "postgres://sable", gotDSN)
	require.NoError(t, m.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_PostgresPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}

	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	_, err = New(context.Background(), Options{Backend: BackendPostgres}, nopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/revrsefr/sable/internal/server/network"
	"github.com/revrsefr/sable/internal/server/repositories/repomanager"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory snapshots.Repository.
type memRepo struct {
	mu      sync.Mutex
	saved   []*models.Snapshot
	saveErr error
	getErr  error
}

func (r *memRepo) Save(_ context.Context, s *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *memRepo) Latest(context.Context) (*models.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if len(r.saved) == 0 {
		return nil, common.ErrorNotFound
	}
	return r.saved[len(r.saved)-1], nil
}

func (r *memRepo) Prune(_ context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) <= keep {
		return 0, nil
	}
	n := len(r.saved) - keep
	r.saved = r.saved[n:]
	return n, nil
}

// memManager is a repomanager.RepositoryManager over memRepo.
type memManager struct {
	repo *memRepo
}

var _ repomanager.RepositoryManager = (*memManager)(nil)

func (m *memManager) RunMigrations(context.Context) error { return nil }
func (m *memManager) Snapshots() snapshots.Repository     { return m.repo }
func (m *memManager) Close() error                        { return nil }
func (m *memManager) WithinTx(ctx context.Context, fn func(context.Context, snapshots.Repository) error) error {
	return fn(ctx, m.repo)
}

func populated(t *testing.T) (*IngestService, *history.Log, *network.Directory) {
	t.Helper()
	svc, l, dir := newIngest(t)
	ctx := context.Background()
	for _, e := range []history.Event{
		ev("1", 1, history.NewUser{User: "u1", Nick: "alice"}),
		ev("2", 2, history.NewUser{User: "u2", Nick: "bob"}),
		ev("3", 3, history.ChannelJoin{Channel: "c1", ChannelName: "#go", User: "u1"}),
		ev("4", 4, history.ChannelJoin{Channel: "c1", ChannelName: "#go", User: "u2"}),
		ev("5", 5, history.NewMessage{Source: "u1", Target: history.ChannelTarget("c1"), Text: "one"}),
		ev("6", 6, history.NewMessage{Source: "u2", Target: history.UserTarget("u1"), Text: "two"}),
	} {
		_, _, err := svc.Record(ctx, e)
		require.NoError(t, err)
	}
	return svc, l, dir
}

func TestSnapshotSaveRestore(t *testing.T) {
	ingest, l, dir := populated(t)
	rm := &memManager{repo: &memRepo{}}
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	svc := NewSnapshotService(l, dir, ingest, rm, 2, 0, nopLogger{})
	svc.now = func() time.Time { return fixed }

	snap, err := svc.Save(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, fixed, snap.CreatedAt)
	assert.Equal(t, uint64(4), snap.Size)

	freshLog := history.NewLog()
	freshDir := network.NewDirectory()
	restorer := NewSnapshotService(freshLog, freshDir, nil, rm, 2, 0, nopLogger{})

	ok, err := restorer.Restore(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, l.Stats(), freshLog.Stats())
	var got []history.Entry
	for e := range freshLog.EntriesForUser("u1") {
		got = append(got, e)
	}
	var want []history.Entry
	for e := range l.EntriesForUser("u1") {
		want = append(want, e)
	}
	assert.Equal(t, want, got)

	target, ok := freshDir.Resolve("#go")
	require.True(t, ok)
	assert.Equal(t, history.ChannelTarget("c1"), target)
}

func TestSnapshotSavePrunes(t *testing.T) {
	_, l, dir := populated(t)
	repo := &memRepo{}
	svc := NewSnapshotService(l, dir, nil, &memManager{repo: repo}, 2, 0, nopLogger{})

	for i := 0; i < 4; i++ {
		_, err := svc.Save(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, repo.saved, 2)
}

func TestSnapshotSaveError(t *testing.T) {
	_, l, dir := populated(t)
	repo := &memRepo{saveErr: errors.New("disk full")}
	svc := NewSnapshotService(l, dir, nil, &memManager{repo: repo}, 2, 0, nopLogger{})

	_, err := svc.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSnapshotRestoreNothing(t *testing.T) {
	svc := NewSnapshotService(history.NewLog(), network.NewDirectory(), nil, &memManager{repo: &memRepo{}}, 1, 0, nopLogger{})
	ok, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotRestoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "{"},
		{"wrong version", `{"version":7,"history":{}}`},
		{"no history", `{"version":1}`},
		{"malformed history", `{"version":1,"history":{"user_logs":[{"user":"u1","log":{"start_index":0,"size":1,"entries":[5]}}],"entries":{"start_index":0,"size":0,"entries":[]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{saved: []*models.Snapshot{{ID: "bad", Payload: []byte(tt.payload)}}}
			svc := NewSnapshotService(history.NewLog(), network.NewDirectory(), nil, &memManager{repo: repo}, 1, 0, nopLogger{})
			_, err := svc.Restore(context.Background())
			if !errors.Is(err, common.ErrorInternal) {
				t.Fatalf("want ErrorInternal, got %v", err)
			}
		})
	}

	repo := &memRepo{getErr: errors.New("unreachable")}
	svc := NewSnapshotService(history.NewLog(), nil, nil, &memManager{repo: repo}, 1, 0, nopLogger{})
	_, err := svc.Restore(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorInternal))
}

func TestSnapshotRunSavesOnShutdown(t *testing.T) {
	_, l, dir := populated(t)
	repo := &memRepo{}
	svc := NewSnapshotService(l, dir, nil, &memManager{repo: repo}, 5, 0, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Run(ctx))
	assert.Len(t, repo.saved, 1)
}

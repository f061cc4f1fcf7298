package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/revrsefr/sable/internal/client/client"
	"github.com/revrsefr/sable/internal/client/config"
	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	params    []string
	lines     []string
	chErr     error
	events    []history.Event
	olderThan int64
	closed    bool
}

func (f *fakeClient) Ping(context.Context) (string, error) { return "OK", nil }

func (f *fakeClient) ChatHistory(_ context.Context, params []string) ([]string, error) {
	f.params = params
	return f.lines, f.chErr
}

func (f *fakeClient) Ingest(_ context.Context, ev history.Event) (history.EntryID, bool, error) {
	f.events = append(f.events, ev)
	_, isMsg := ev.Details.(history.NewMessage)
	return history.EntryID(len(f.events)), isMsg, nil
}

func (f *fakeClient) Expire(_ context.Context, olderThan int64) (int, error) {
	f.olderThan = olderThan
	return 2, nil
}

func (f *fakeClient) Snapshot(context.Context) (string, string, error) {
	return "snap-1", "http://minio/snap-1", nil
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// setup replaces the dial, clock, and prompt seams and returns the fake
// client and a pointer to the config it was dialled with.
func setup(t *testing.T) (*fakeClient, **config.Config) {
	t.Helper()
	t.Setenv(config.TokenEnv, "")
	t.Setenv(SecretEnv, "")

	f := &fakeClient{}
	var dialled *config.Config

	origDial, origNow, origRead, origTerm := dialHistory, now, readPassword, stdinIsTerminal
	t.Cleanup(func() { dialHistory, now, readPassword, stdinIsTerminal = origDial, origNow, origRead, origTerm })
	stdinIsTerminal = func() bool { return false }

	dialHistory = func(cfg *config.Config) (HistoryClient, error) {
		dialled = cfg
		return f, nil
	}
	now = func() time.Time { return fixedNow }
	readPassword = func(int) ([]byte, error) { return nil, errors.New("no terminal") }

	return f, &dialled
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChatHistoryCommand(t *testing.T) {
	f, dialled := setup(t)
	f.lines = []string{"BATCH +1 chathistory #go", "BATCH -1"}

	out, err := run(t, "", "chathistory", "--addr", "h:9", "--token", "tok", "LATEST", "#go", "*", "10")
	require.NoError(t, err)
	assert.Equal(t, []string{"LATEST", "#go", "*", "10"}, f.params)
	assert.Equal(t, "BATCH +1 chathistory #go\nBATCH -1\n", out)
	assert.True(t, f.closed)

	require.NotNil(t, *dialled)
	assert.Equal(t, "h:9", (*dialled).ServerEndpointAddr)
	assert.Equal(t, "tok", (*dialled).AccessToken)
}

func TestChatHistoryCommandFail(t *testing.T) {
	f, _ := setup(t)
	f.chErr = &client.FailError{Line: "FAIL CHATHISTORY INVALID_TARGET LATEST #x :Messages could not be retrieved"}

	_, err := run(t, "", "ch", "LATEST", "#x", "*", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_TARGET")
}

func TestTargetsCommand(t *testing.T) {
	f, _ := setup(t)

	_, err := run(t, "", "targets", "--since", "1h", "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"TARGETS",
		"timestamp=2026-01-02T02:04:05.000Z",
		"timestamp=2026-01-02T03:04:05.000Z",
		"5",
	}, f.params)

	_, err = run(t, "", "targets", "--limit", "0")
	assert.Error(t, err)

	_, err = run(t, "", "targets", "timestamp=2026-01-01T00:00:00.000Z", "*", "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"TARGETS", "timestamp=2026-01-01T00:00:00.000Z", "*", "7"}, f.params)

	_, err = run(t, "", "targets", "a", "b")
	assert.Error(t, err)
}

func TestTokenPromptOnTerminal(t *testing.T) {
	_, dialled := setup(t)
	stdinIsTerminal = func() bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("from-tty"), nil }

	_, err := run(t, "", "ping")
	require.NoError(t, err)
	assert.Empty(t, (*dialled).AccessToken, "ping needs no token")

	_, err = run(t, "", "chathistory", "LATEST", "#go", "*", "1")
	require.NoError(t, err)
	assert.Equal(t, "from-tty", (*dialled).AccessToken)
}

func TestPingExpireSnapshot(t *testing.T) {
	f, _ := setup(t)

	out, err := run(t, "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "status: OK\n", out)

	out, err = run(t, "", "expire", "--older-than", "24h")
	require.NoError(t, err)
	assert.Equal(t, "removed: 2\n", out)
	assert.Equal(t, fixedNow.Add(-24*time.Hour).UnixMilli(), f.olderThan)

	out, err = run(t, "", "snapshot")
	require.NoError(t, err)
	assert.Equal(t, "snapshot: snap-1\ndownload: http://minio/snap-1\n", out)
}

func TestSnapshotDownload(t *testing.T) {
	setup(t)
	orig := downloadSnapshot
	t.Cleanup(func() { downloadSnapshot = orig })

	var gotURL string
	downloadSnapshot = func(_ context.Context, url string, w io.Writer) (int64, error) {
		gotURL = url
		n, err := w.Write([]byte(`{"version":1}`))
		return int64(n), err
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	out, err := run(t, "", "snapshot", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, "http://minio/snap-1", gotURL)
	assert.Contains(t, out, "saved: "+path+" (13 bytes)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	downloadSnapshot = func(context.Context, string, io.Writer) (int64, error) {
		return 0, errors.New("403")
	}
	_, err = run(t, "", "snapshot", "-o", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download snapshot")
}

func TestIngestCommand(t *testing.T) {
	f, _ := setup(t)

	stdin := `{"id":"e1","timestamp":1,"details":{"kind":"channel_join","data":{"channel":"c1","channel_name":"#go","user":"u1"}}}

{"id":"e2","timestamp":2,"details":{"kind":"new_message","data":{"source":"u1","source_mask":"a!a@h","target":{"kind":"channel","channel":"c1"},"target_name":"#go","message_type":"PRIVMSG","text":"hi"}}}
`
	out, err := run(t, stdin, "ingest")
	require.NoError(t, err)
	assert.Equal(t, "stored: 1 skipped: 1\n", out)
	require.Len(t, f.events, 2)
	assert.Equal(t, history.EventID("e2"), f.events[1].ID)

	_, err = run(t, "{not json}\n", "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestTokenCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "", "token", "--secret", "s3cret", "-u", "irc.example", "--role", "server")
	require.NoError(t, err)

	claims, err := auth.ParseToken(strings.TrimSpace(out), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "irc.example", claims.Subject)
	assert.Equal(t, auth.RoleServer, claims.Role)

	_, err = run(t, "", "token", "--secret", "x", "-u", "u1", "--role", "admin")
	assert.Error(t, err)

	_, err = run(t, "", "token", "-u", "u1")
	assert.Error(t, err, "no secret and no terminal")

	readPassword = func(int) ([]byte, error) { return []byte("prompted\n"), nil }
	out, err = run(t, "", "token", "-u", "u1")
	require.NoError(t, err)
	_, err = auth.ParseToken(strings.TrimSpace(out), []byte("prompted"))
	require.NoError(t, err)
}

func TestTokenPromptAndConfigFile(t *testing.T) {
	_, dialled := setup(t)
	readPassword = func(int) ([]byte, error) { return []byte("typed"), nil }

	path := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_endpoint_addr: file:1\naccess_token: \"-\"\nrequest_timeout: 2s\n"), 0o600))

	_, err := run(t, "", "ping", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "file:1", (*dialled).ServerEndpointAddr)
	assert.Equal(t, "typed", (*dialled).AccessToken)
	assert.Equal(t, 2*time.Second, (*dialled).RequestTimeout)

	_, err = run(t, "", "ping", "--config", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

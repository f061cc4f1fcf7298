package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, ":9102", c.MetricsAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 7*24*time.Hour, c.Retention)
	assert.Equal(t, time.Minute, c.ExpiryInterval)
	assert.Equal(t, 100, c.MaxHistoryLimit)
	assert.Equal(t, "none", c.SnapshotBackend)
	assert.Equal(t, -1, c.IngestFD)
	require.NoError(t, c.Validate())
}

func TestLoad_NoArgsUsesDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func TestLoad_JSONFileThenFlags(t *testing.T) {
	path := writeFile(t, "sable.json", `{
		"endpoint_addr_grpc": ":6000",
		"retention": "48h",
		"expiry_interval": 30000000000,
		"snapshot_backend": "badger",
		"badger_path": "/var/lib/sable",
		"badger_sync_writes": true,
		"max_history_limit": 250
	}`)

	c, err := Load([]string{"-c", path, "-a", ":7000", "-K", "9", "-unrelated", "x"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.EndpointAddrGRPC, "flags win over the file")
	assert.Equal(t, 48*time.Hour, c.Retention)
	assert.Equal(t, 30*time.Second, c.ExpiryInterval)
	assert.Equal(t, "badger", c.SnapshotBackend)
	assert.Equal(t, "/var/lib/sable", c.BadgerPath)
	assert.True(t, c.BadgerSyncWrites)
	assert.Equal(t, 250, c.MaxHistoryLimit)
	assert.Equal(t, 9, c.SnapshotKeep)
	assert.Equal(t, "secretKey", c.SecretKey, "unset file fields keep defaults")
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "sable.yaml", `
endpoint_addr_grpc: ":6001"
log_level: debug
snapshot_backend: s3
s3_bucket: history
s3_prefix: net1
snapshot_interval: 10m
query_rate: 2.5
`)

	c, err := Load([]string{"--config=" + path})
	require.NoError(t, err)

	assert.Equal(t, ":6001", c.EndpointAddrGRPC)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "s3", c.SnapshotBackend)
	assert.Equal(t, "history", c.S3Bucket)
	assert.Equal(t, "net1", c.S3Prefix)
	assert.Equal(t, 10*time.Minute, c.SnapshotInterval)
	assert.Equal(t, 2.5, c.QueryRate)
}

func TestLoad_DurationFlags(t *testing.T) {
	c, err := Load([]string{"-R", "1h", "-E", "5s", "-I", "0s", "-f", "3"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, c.Retention)
	assert.Equal(t, 5*time.Second, c.ExpiryInterval)
	assert.Zero(t, c.SnapshotInterval)
	assert.Equal(t, 3, c.IngestFD)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"missing file", func(t *testing.T) []string { return []string{"-c", filepath.Join(t.TempDir(), "nope.json")} }},
		{"bad json", func(t *testing.T) []string { return []string{"-c", writeFile(t, "bad.json", "{")} }},
		{"bad yaml", func(t *testing.T) []string { return []string{"-c", writeFile(t, "bad.yml", "retention: [")} }},
		{"bad duration flag", func(t *testing.T) []string { return []string{"-R", "forever"} }},
		{"unknown backend", func(t *testing.T) []string { return []string{"-S", "tape"} }},
		{"s3 needs a bucket", func(t *testing.T) []string { return []string{"-S", "s3"} }},
		{"postgres needs a dsn", func(t *testing.T) []string { return []string{"-S", "postgres", "-d="} }},
		{"bad log level", func(t *testing.T) []string { return []string{"-l", "loud"} }},
		{"zero limit", func(t *testing.T) []string { return []string{"-L", "0"} }},
		{"empty secret", func(t *testing.T) []string { return []string{"-s="} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args(t))
			assert.Error(t, err)
		})
	}
}

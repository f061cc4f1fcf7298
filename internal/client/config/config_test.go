package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Empty(t, c.AccessToken)
	assert.Equal(t, 12*time.Second, c.RequestTimeout)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "cli.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"server_endpoint_addr":"h:1","request_timeout":"3s"}`), 0o600))
	yamlPath := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("access_token: filetok\nrequest_timeout: 1m\n"), 0o600))

	t.Run("no file", func(t *testing.T) {
		t.Setenv(TokenEnv, "")
		c, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	})

	t.Run("json", func(t *testing.T) {
		t.Setenv(TokenEnv, "")
		c, err := Load(jsonPath)
		require.NoError(t, err)
		assert.Equal(t, "h:1", c.ServerEndpointAddr)
		assert.Equal(t, 3*time.Second, c.RequestTimeout)
	})

	t.Run("yaml then env", func(t *testing.T) {
		t.Setenv(TokenEnv, "envtok")
		c, err := Load(yamlPath)
		require.NoError(t, err)
		assert.Equal(t, "envtok", c.AccessToken)
		assert.Equal(t, time.Minute, c.RequestTimeout)
		assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)

		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		_, err = Load(bad)
		assert.Error(t, err)
	})
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/revrsefr/sable/internal/timex"
	"gopkg.in/yaml.v3"
)

// TokenEnv names the environment variable holding the access token.
const TokenEnv = "SABLE_TOKEN"

// Config holds runtime settings for the CLI.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	RequestTimeout     time.Duration
}

// FileConfig is the on-disk form of Config.
type FileConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	AccessToken        string         `json:"access_token" yaml:"access_token"`
	RequestTimeout     timex.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.AccessToken = ""
	c.RequestTimeout = 12 * time.Second
}

// LoadFile overlays values from a JSON or YAML file. Empty fields in the
// file leave c unchanged.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.ServerEndpointAddr != "" {
		c.ServerEndpointAddr = fc.ServerEndpointAddr
	}
	if fc.AccessToken != "" {
		c.AccessToken = fc.AccessToken
	}
	if fc.RequestTimeout.Duration != 0 {
		c.RequestTimeout = fc.RequestTimeout.Duration
	}
	return nil
}

// LoadEnv takes the access token from TokenEnv when set.
func (c *Config) LoadEnv() {
	if tok := os.Getenv(TokenEnv); tok != "" {
		c.AccessToken = tok
	}
}

// Load applies defaults, then path (if not empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadEnv()
	return cfg, nil
}

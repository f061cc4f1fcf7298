package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/revrsefr/sable/internal/flagx"
	"github.com/revrsefr/sable/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations accept "90s" style
// strings or integer nanoseconds. Zero values leave the current setting.
// BadgerSyncWrites is a pointer so an explicit false is applied.
type FileConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr      string         `json:"metrics_addr" yaml:"metrics_addr"`
	LogLevel         string         `json:"log_level" yaml:"log_level"`
	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	ServerName       string         `json:"server_name" yaml:"server_name"`
	Retention        timex.Duration `json:"retention" yaml:"retention"`
	ExpiryInterval   timex.Duration `json:"expiry_interval" yaml:"expiry_interval"`
	MaxHistoryLimit  int            `json:"max_history_limit" yaml:"max_history_limit"`
	QueryRate        float64        `json:"query_rate" yaml:"query_rate"`
	QueryBurst       int            `json:"query_burst" yaml:"query_burst"`
	SnapshotBackend  string         `json:"snapshot_backend" yaml:"snapshot_backend"`
	SnapshotInterval timex.Duration `json:"snapshot_interval" yaml:"snapshot_interval"`
	SnapshotKeep     int            `json:"snapshot_keep" yaml:"snapshot_keep"`
	DatabaseDSN      string         `json:"database_dsn" yaml:"database_dsn"`
	BadgerPath       string         `json:"badger_path" yaml:"badger_path"`
	BadgerSyncWrites *bool          `json:"badger_sync_writes" yaml:"badger_sync_writes"`
	S3RootUser       string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region         string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix         string         `json:"s3_prefix" yaml:"s3_prefix"`
}

// parseFile overlays the file named by -c/-config. Files ending in .yaml
// or .yml are YAML; anything else is JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlagFrom(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.ServerName, c.ServerName)
	setString(&config.SnapshotBackend, c.SnapshotBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BadgerPath, c.BadgerPath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)

	if c.Retention.Duration != 0 {
		config.Retention = c.Retention.Duration
	}
	if c.ExpiryInterval.Duration != 0 {
		config.ExpiryInterval = c.ExpiryInterval.Duration
	}
	if c.SnapshotInterval.Duration != 0 {
		config.SnapshotInterval = c.SnapshotInterval.Duration
	}
	if c.BadgerSyncWrites != nil {
		config.BadgerSyncWrites = *c.BadgerSyncWrites
	}
	if c.MaxHistoryLimit != 0 {
		config.MaxHistoryLimit = c.MaxHistoryLimit
	}
	if c.QueryRate != 0 {
		config.QueryRate = c.QueryRate
	}
	if c.QueryBurst != 0 {
		config.QueryBurst = c.QueryBurst
	}
	if c.SnapshotKeep != 0 {
		config.SnapshotKeep = c.SnapshotKeep
	}
}

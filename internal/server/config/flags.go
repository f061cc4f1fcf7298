package config

import (
	"flag"
	"io"

	"github.com/revrsefr/sable/internal/flagx"
)

// ownFlags are the short flags parseFlags handles.
var ownFlags = []string{
	"-a", "-m", "-l", "-s", "-n",
	"-R", "-E", "-L", "-q", "-B",
	"-S", "-I", "-K",
	"-d", "-D", "-W",
	"-u", "-p", "-b", "-g", "-e", "-P",
	"-f",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g. ":50051")
//	-m string     metrics bind address, empty to disable
//	-l string     log level: debug, info, warn, error
//	-s string     JWT HMAC secret key
//	-n string     server name used as the source of replies
//	-R duration   history retention (e.g. "168h")
//	-E duration   expiry interval
//	-L int        maximum CHATHISTORY limit
//	-q float      CHATHISTORY requests per second per user
//	-B int        CHATHISTORY burst per user
//	-S string     snapshot backend: none, postgres, badger, s3
//	-I duration   snapshot interval
//	-K int        snapshots to keep
//	-d string     PostgreSQL DSN
//	-D string     BadgerDB directory, empty for in-memory
//	-W bool       sync BadgerDB writes
//	-u/-p string  S3 user and password
//	-b/-g string  S3 bucket and region
//	-e string     S3 base endpoint
//	-P string     S3 key prefix
//	-f int        inherited event socket descriptor
//
// Arguments other than these flags are ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, ownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.ServerName, "n", config.ServerName, "server name")

	fs.DurationVar(&config.Retention, "R", config.Retention, "history retention")
	fs.DurationVar(&config.ExpiryInterval, "E", config.ExpiryInterval, "expiry interval")
	fs.IntVar(&config.MaxHistoryLimit, "L", config.MaxHistoryLimit, "maximum history limit")
	fs.Float64Var(&config.QueryRate, "q", config.QueryRate, "queries per second per user")
	fs.IntVar(&config.QueryBurst, "B", config.QueryBurst, "query burst per user")

	fs.StringVar(&config.SnapshotBackend, "S", config.SnapshotBackend, "snapshot backend")
	fs.DurationVar(&config.SnapshotInterval, "I", config.SnapshotInterval, "snapshot interval")
	fs.IntVar(&config.SnapshotKeep, "K", config.SnapshotKeep, "snapshots to keep")

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BadgerPath, "D", config.BadgerPath, "badger directory")
	fs.BoolVar(&config.BadgerSyncWrites, "W", config.BadgerSyncWrites, "sync badger writes")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Prefix, "P", config.S3Prefix, "S3 key prefix")

	fs.IntVar(&config.IngestFD, "f", config.IngestFD, "event socket descriptor")

	return fs.Parse(args)
}

package cli

import (
	"context"
	"os"
	"time"

	"github.com/revrsefr/sable/internal/client/client"
	"github.com/revrsefr/sable/internal/client/config"
	"github.com/revrsefr/sable/internal/history"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// HistoryClient is the server API the commands use.
type HistoryClient interface {
	Ping(ctx context.Context) (string, error)
	ChatHistory(ctx context.Context, params []string) ([]string, error)
	Ingest(ctx context.Context, ev history.Event) (history.EntryID, bool, error)
	Expire(ctx context.Context, olderThan int64) (int, error)
	Snapshot(ctx context.Context) (id, url string, err error)
	Close() error
}

// dialHistory is a test seam for connecting to the server.
var dialHistory = func(cfg *config.Config) (HistoryClient, error) {
	c, err := client.NewHistoryClient(cfg.ServerEndpointAddr, cfg.AccessToken)
	if err != nil {
		return nil, err
	}
	c.SetTimeout(cfg.RequestTimeout)
	return c, nil
}

// now is a test seam for the wall clock.
var now = time.Now

// stdinIsTerminal is a test seam for term.IsTerminal on stdin.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// options are the global flags.
type options struct {
	configFile string
	addr       string
	token      string
	timeout    time.Duration
}

// config resolves the effective settings: defaults, file, environment,
// then flags the user set explicitly. A token of "-", or a missing token
// when needToken is set and stdin is a terminal, is prompted for.
func (o *options) config(cmd *cobra.Command, needToken bool) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ServerEndpointAddr = o.addr
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.timeout
	}
	if flags.Changed("token") {
		cfg.AccessToken = o.token
	}
	if cfg.AccessToken == "-" || (needToken && cfg.AccessToken == "" && stdinIsTerminal()) {
		tok, err := GetSecret(cmd.ErrOrStderr(), "Access token")
		if err != nil {
			return nil, err
		}
		cfg.AccessToken = tok
	}
	return cfg, nil
}

// withClient connects, runs fn, and closes the connection.
func (o *options) withClient(cmd *cobra.Command, needToken bool, fn func(HistoryClient) error) error {
	cfg, err := o.config(cmd, needToken)
	if err != nil {
		return err
	}
	c, err := dialHistory(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// NewRoot constructs the root command and registers every subcommand.
func NewRoot() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "sable-history",
		Short:         "Query and administer the sable history server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "JSON or YAML config file")
	pf.StringVarP(&o.addr, "addr", "a", "", "server address (host:port)")
	pf.StringVarP(&o.token, "token", "t", "", `access token, "-" to prompt`)
	pf.DurationVar(&o.timeout, "timeout", 0, "per-request timeout")

	root.AddCommand(
		newChatHistoryCommand(o),
		newTargetsCommand(o),
		newPingCommand(o),
		newIngestCommand(o),
		newExpireCommand(o),
		newSnapshotCommand(o),
		newTokenCommand(),
	)
	return root
}

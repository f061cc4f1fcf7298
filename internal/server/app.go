// Package server wires the history server together: it opens the snapshot
// backend, restores the last snapshot, and runs the gRPC endpoint, the
// metrics endpoint, the ingest feed, expiry, and periodic snapshots until
// a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/ipc"
	"github.com/revrsefr/sable/internal/logging"
	"github.com/revrsefr/sable/internal/server/chathistory"
	"github.com/revrsefr/sable/internal/server/config"
	"github.com/revrsefr/sable/internal/server/metrics"
	"github.com/revrsefr/sable/internal/server/network"
	"github.com/revrsefr/sable/internal/server/repositories/repomanager"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
	"github.com/revrsefr/sable/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/revrsefr/sable/internal/server/grpc"
)

// eventFeed is an ingest source the App owns.
type eventFeed interface {
	services.EventReceiver
	io.Closer
}

var (
	logOutput io.Writer = os.Stdout

	newRepositoryManager = repomanager.New

	openEventFeed = func(fd int) (eventFeed, error) {
		return ipc.ReceiverFromFD[history.Event](fd, ipc.DefaultMaxMessageSize)
	}
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	log       *history.Log
	directory *network.Directory
	ingest    *services.IngestService
	expiry    *services.ExpiryService
	snapshots *services.SnapshotService
	grpc      *gs.GRPCServer
	metrics   *metrics.Server
	feed      eventFeed
}

// NewApp builds every component from c. Nothing is started.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewJSONLogger(logOutput, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	rm, err := newRepositoryManager(ctx, repomanager.Options{
		Backend:          c.SnapshotBackend,
		DatabaseDSN:      c.DatabaseDSN,
		BadgerPath:       c.BadgerPath,
		BadgerSyncWrites: c.BadgerSyncWrites,
		S3: snapshots.S3Config{
			Region:       c.S3Region,
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("snapshot backend init error: %w", err)
	}

	app := &App{
		config:    c,
		logger:    logger,
		repos:     rm,
		log:       history.NewLog(),
		directory: network.NewDirectory(),
	}

	if err := app.build(); err != nil {
		_ = rm.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) build() error {
	c := app.config

	hs := services.NewHistoryService(app.log, app.directory, app.logger)
	app.ingest = services.NewIngestService(app.log, app.directory, app.logger)
	app.expiry = services.NewExpiryService(app.log, c.Retention, c.ExpiryInterval, app.logger)
	app.snapshots = services.NewSnapshotService(app.log, app.directory, app.ingest, app.repos, c.SnapshotKeep, c.SnapshotInterval, app.logger)

	handler := chathistory.NewHandler(hs, app.directory, c.MaxHistoryLimit, c.ServerName, app.logger)

	svc := gs.Services{
		ChatHistory: handler,
		Ingest:      app.ingest,
		Expiry:      app.expiry,
		Snapshots:   app.snapshots,
	}
	if p, ok := app.repos.Snapshots().(snapshots.Presigner); ok {
		svc.Presigner = p
	}

	s, err := gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, svc, c.SecretKey, c.QueryRate, c.QueryBurst)
	if err != nil {
		return fmt.Errorf("grpc init error: %w", err)
	}
	app.grpc = s

	if c.MetricsAddr != "" {
		app.metrics = metrics.NewServer(c.MetricsAddr, app.logger)
	}

	if c.IngestFD >= 0 {
		feed, err := openEventFeed(c.IngestFD)
		if err != nil {
			return fmt.Errorf("event feed init error: %w", err)
		}
		app.feed = feed
	}

	return nil
}

// Run restores the latest snapshot and serves until ctx ends, a shutdown
// signal arrives, or a component fails. The snapshot backend and the event
// feed are closed on every return path.
func (app *App) Run(ctx context.Context) error {
	defer app.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	restored, err := app.snapshots.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if restored {
		stats := app.log.Stats()
		app.logger.Info(ctx, "history restored", "start_index", stats.StartIndex, "retained", stats.Retained)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.expiry.Run(ctx) })
	g.Go(func() error { return app.snapshots.Run(ctx) })

	if app.metrics != nil {
		g.Go(func() error { return app.metrics.Run(ctx) })
	}
	if app.feed != nil {
		g.Go(func() error { return app.ingest.Consume(ctx, app.feed) })
	}

	err = g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) close() {
	if app.feed != nil {
		if err := app.feed.Close(); err != nil {
			app.logger.Warn(context.Background(), "closing event feed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Warn(context.Background(), "closing snapshot backend", "error", err)
	}
}

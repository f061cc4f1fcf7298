// Package metrics declares the history server's Prometheus collectors and
// the HTTP server that exposes them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revrsefr/sable/internal/logging"
)

var (
	// QueriesTotal counts history queries by request kind and result.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sable_history_queries_total",
		Help: "History queries by kind and result",
	}, []string{"kind", "result"})

	// QueryDuration tracks history query latency.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sable_history_query_duration_seconds",
		Help:    "History query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	}, []string{"kind"})

	// QueryEntries tracks how many entries a query returned.
	QueryEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sable_history_query_entries",
		Help:    "Entries returned per history query",
		Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
	})

	// IngestedTotal counts state changes offered to the log by kind and
	// whether the log kept them.
	IngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sable_history_ingested_total",
		Help: "State changes offered to history by kind and outcome",
	}, []string{"kind", "outcome"})

	// ExpiredEntriesTotal counts entries removed by expiry.
	ExpiredEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sable_history_expired_entries_total",
		Help: "History entries removed by expiry",
	})

	// RetainedEntries is the number of live entries after the last expiry or snapshot.
	RetainedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sable_history_retained_entries",
		Help: "Live history entries",
	})

	// SnapshotsTotal counts snapshot saves and restores by result.
	SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sable_history_snapshots_total",
		Help: "Snapshot operations by operation and result",
	}, []string{"operation", "result"})

	// SnapshotBytes is the size of the last saved snapshot.
	SnapshotBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sable_history_snapshot_bytes",
		Help: "Size of the last saved snapshot in bytes",
	})

	// RateLimitedTotal counts requests rejected by the per-requester limiter.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sable_history_rate_limited_total",
		Help: "Requests rejected by rate limiting, by method",
	}, []string{"method"})
)

// Result labels shared by collectors.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	OutcomeStored = "stored"
	OutcomeSkip   = "skipped"
)

// Server serves /metrics over HTTP.
type Server struct {
	address string
	logger  logging.Logger
	srv     *http.Server
}

func NewServer(address string, l logging.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		address: address,
		logger:  l.With("module", "metrics_server"),
		srv: &http.Server{
			Addr:              address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting metrics server", "address", s.address)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

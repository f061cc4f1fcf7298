// Package grpc serves HistoryService over gRPC: CHATHISTORY queries for
// users and ingest and maintenance calls for the IRC server.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/revrsefr/sable/internal/history"
	"github.com/revrsefr/sable/internal/logging"
	pb "github.com/revrsefr/sable/internal/proto"
	"github.com/revrsefr/sable/internal/server/models"
	"github.com/revrsefr/sable/internal/server/repositories/snapshots"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

// ChatHistoryHandler answers CHATHISTORY commands.
type ChatHistoryHandler interface {
	Handle(ctx context.Context, requester history.UserID, params []string) ([]string, error)
}

// Recorder stores network events.
type Recorder interface {
	Record(ctx context.Context, ev history.Event) (history.EntryID, bool, error)
}

// Expirer drops old history.
type Expirer interface {
	ExpireOlderThan(ctx context.Context, olderThan int64) int
}

// Snapshotter saves history on demand.
type Snapshotter interface {
	Save(ctx context.Context) (*models.Snapshot, error)
}

// Services are the collaborators behind the RPCs. Presigner is optional.
type Services struct {
	ChatHistory ChatHistoryHandler
	Ingest      Recorder
	Expiry      Expirer
	Snapshots   Snapshotter
	Presigner   snapshots.Presigner
}

// PresignTTL is how long a snapshot download link stays valid.
const PresignTTL = 15 * time.Minute

type GRPCServer struct {
	pb.UnimplementedHistoryServiceServer
	address   string
	services  Services
	logger    logging.Logger
	jwtSecret []byte
	limiter   *requesterLimiter
}

// NewGRPCServer constructs a server listening on a. ChatHistory calls are
// limited to queryRate per second per requester with the given burst; a
// non-positive rate disables limiting.
func NewGRPCServer(a string, l logging.Logger, s Services, secretKey string, queryRate float64, burst int) (*GRPCServer, error) {
	var limiter *requesterLimiter
	if queryRate > 0 {
		limiter = newRequesterLimiter(rate.Limit(queryRate), burst)
	}
	return &GRPCServer{
		address:   a,
		services:  s,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
		limiter:   limiter,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor, s.rateLimitInterceptor))
	pb.RegisterHistoryServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stop:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

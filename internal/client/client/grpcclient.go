package client

import (
	"context"
	"errors"
	"time"

	"github.com/revrsefr/sable/internal/common"
	"github.com/revrsefr/sable/internal/history"
	pb "github.com/revrsefr/sable/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultTimeout bounds a single call when the caller's context has no
// deadline of its own.
const DefaultTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.HistoryServiceClient
	accessToken string
	timeout     time.Duration
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewHistoryClient connects to endpointURL and sends token with every
// call. Extra dial options are appended to the defaults.
func NewHistoryClient(endpointURL, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: token, timeout: DefaultTimeout}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewHistoryServiceClient(conn)
	return c, nil
}

// SetTimeout changes the per-call timeout. Zero disables it.
func (s *GRPCClient) SetTimeout(d time.Duration) {
	s.timeout = d
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

type unaryCall func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

// call converts req, invokes rpc, and decodes the reply into resp.
func (s *GRPCClient) call(ctx context.Context, rpc unaryCall, req, resp any) error {
	if s.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
	}

	in, err := pb.ToStruct(req)
	if err != nil {
		return err
	}

	out, err := rpc(ctx, in)
	if err != nil {
		return mapError(err)
	}

	return pb.FromStruct(out, resp)
}

// Ping reports the server status string.
func (s *GRPCClient) Ping(ctx context.Context) (string, error) {
	var resp pb.PingResponse
	if err := s.call(ctx, s.client.Ping, &pb.PingRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// ChatHistory sends a CHATHISTORY command, params being everything after
// the command name. It returns the reply lines, or a *FailError when the
// server rejected the request.
func (s *GRPCClient) ChatHistory(ctx context.Context, params []string) ([]string, error) {
	var resp pb.ChatHistoryResponse
	if err := s.call(ctx, s.client.ChatHistory, &pb.ChatHistoryRequest{Params: params}, &resp); err != nil {
		return nil, err
	}
	if resp.Fail != "" {
		return nil, &FailError{Line: resp.Fail}
	}
	return resp.Lines, nil
}

// Ingest records one network event and reports its entry id, if stored.
func (s *GRPCClient) Ingest(ctx context.Context, ev history.Event) (history.EntryID, bool, error) {
	if ev.Details == nil {
		return 0, false, errors.New("event has no details")
	}
	var resp pb.IngestResponse
	if err := s.call(ctx, s.client.Ingest, &pb.IngestRequest{Event: ev}, &resp); err != nil {
		return 0, false, err
	}
	return history.EntryID(resp.EntryID), resp.Accepted, nil
}

// Expire removes history older than olderThan (unix ms).
func (s *GRPCClient) Expire(ctx context.Context, olderThan int64) (int, error) {
	var resp pb.ExpireResponse
	if err := s.call(ctx, s.client.Expire, &pb.ExpireRequest{OlderThan: olderThan}, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Snapshot asks the server to save a snapshot now. url is a temporary
// download link when the backend provides one.
func (s *GRPCClient) Snapshot(ctx context.Context) (id, url string, err error) {
	var resp pb.SnapshotResponse
	if err := s.call(ctx, s.client.Snapshot, &pb.SnapshotRequest{}, &resp); err != nil {
		return "", "", err
	}
	return resp.ID, resp.URL, nil
}

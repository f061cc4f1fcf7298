package grpc

import (
	"context"
	"errors"

	"github.com/revrsefr/sable/internal/common"
	pb "github.com/revrsefr/sable/internal/proto"
	"github.com/revrsefr/sable/internal/server/chathistory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func respond(v any) (*structpb.Struct, error) {
	out, err := pb.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return respond(pb.PingResponse{Status: "OK"})
}

func (s *GRPCServer) ChatHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	var in pb.ChatHistoryRequest
	if err := pb.FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	lines, err := s.services.ChatHistory.Handle(ctx, requester, in.Params)
	if err != nil {
		var fe *chathistory.FailError
		if errors.As(err, &fe) {
			return respond(pb.ChatHistoryResponse{Fail: fe.Line()})
		}
		s.logger.Error(ctx, "chathistory failed", "requester", requester, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return respond(pb.ChatHistoryResponse{Lines: lines})
}

func (s *GRPCServer) Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pb.IngestRequest
	if err := pb.FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if in.Event.Details == nil {
		return nil, status.Error(codes.InvalidArgument, "event has no details")
	}

	id, accepted, err := s.services.Ingest.Record(ctx, in.Event)
	if err != nil {
		s.logger.Error(ctx, "ingest failed", "event", in.Event.ID, "error", err)
		if errors.Is(err, common.ErrorInternal) {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return nil, status.Error(codes.Unknown, err.Error())
	}

	return respond(pb.IngestResponse{EntryID: uint64(id), Accepted: accepted})
}

func (s *GRPCServer) Expire(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pb.ExpireRequest
	if err := pb.FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	removed := s.services.Expiry.ExpireOlderThan(ctx, in.OlderThan)
	return respond(pb.ExpireResponse{Removed: removed})
}

func (s *GRPCServer) Snapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	snap, err := s.services.Snapshots.Save(ctx)
	if err != nil {
		s.logger.Error(ctx, "snapshot failed", "error", err)
		return nil, status.Error(codes.Internal, "snapshot failed")
	}

	out := pb.SnapshotResponse{ID: snap.ID}
	if s.services.Presigner != nil {
		url, err := s.services.Presigner.PresignGet(ctx, snap, PresignTTL)
		if err != nil {
			s.logger.Warn(ctx, "presign failed", "id", snap.ID, "error", err)
		} else {
			out.URL = url
		}
	}

	return respond(out)
}

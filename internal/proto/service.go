// Package proto describes the sable.history.v1.HistoryService gRPC service.
//
// Every RPC carries a google.protobuf.Struct on the wire. The typed request
// and response structs in messages.go are converted to and from Struct with
// ToStruct and FromStruct.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "sable.history.v1.HistoryService"

const (
	HistoryService_Ping_FullMethodName        = "/" + ServiceName + "/Ping"
	HistoryService_ChatHistory_FullMethodName = "/" + ServiceName + "/ChatHistory"
	HistoryService_Ingest_FullMethodName      = "/" + ServiceName + "/Ingest"
	HistoryService_Expire_FullMethodName      = "/" + ServiceName + "/Expire"
	HistoryService_Snapshot_FullMethodName    = "/" + ServiceName + "/Snapshot"
)

// HistoryServiceServer is the server API for HistoryService.
type HistoryServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChatHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Expire(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedHistoryServiceServer can be embedded to get Unimplemented
// errors for methods a server does not provide.
type UnimplementedHistoryServiceServer struct{}

func (UnimplementedHistoryServiceServer) Ping(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedHistoryServiceServer) ChatHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ChatHistory not implemented")
}
func (UnimplementedHistoryServiceServer) Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Ingest not implemented")
}
func (UnimplementedHistoryServiceServer) Expire(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Expire not implemented")
}
func (UnimplementedHistoryServiceServer) Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Snapshot not implemented")
}

func RegisterHistoryServiceServer(s grpc.ServiceRegistrar, srv HistoryServiceServer) {
	s.RegisterService(&HistoryService_ServiceDesc, srv)
}

type unaryMethod func(srv HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HistoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		h := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(HistoryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

// HistoryService_ServiceDesc is the grpc.ServiceDesc for HistoryService.
var HistoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HistoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler: handler(HistoryService_Ping_FullMethodName, func(s HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "ChatHistory",
			Handler: handler(HistoryService_ChatHistory_FullMethodName, func(s HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.ChatHistory(ctx, in)
			}),
		},
		{
			MethodName: "Ingest",
			Handler: handler(HistoryService_Ingest_FullMethodName, func(s HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Ingest(ctx, in)
			}),
		},
		{
			MethodName: "Expire",
			Handler: handler(HistoryService_Expire_FullMethodName, func(s HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Expire(ctx, in)
			}),
		},
		{
			MethodName: "Snapshot",
			Handler: handler(HistoryService_Snapshot_FullMethodName, func(s HistoryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.Snapshot(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sable/history/v1/history.proto",
}

// HistoryServiceClient is the client API for HistoryService.
type HistoryServiceClient interface {
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ChatHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Expire(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type historyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHistoryServiceClient(cc grpc.ClientConnInterface) HistoryServiceClient {
	return &historyServiceClient{cc}
}

func (c *historyServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *historyServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, HistoryService_Ping_FullMethodName, in, opts...)
}

func (c *historyServiceClient) ChatHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, HistoryService_ChatHistory_FullMethodName, in, opts...)
}

func (c *historyServiceClient) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, HistoryService_Ingest_FullMethodName, in, opts...)
}

func (c *historyServiceClient) Expire(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, HistoryService_Expire_FullMethodName, in, opts...)
}

func (c *historyServiceClient) Snapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, HistoryService_Snapshot_FullMethodName, in, opts...)
}

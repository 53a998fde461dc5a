package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// Hand-maintained service descriptor. Mirrors what stub generation would
// emit for:
//
//	service Store {
//	  rpc Get(GetRequest) returns (GetResponse);
//	  rpc Set(SetRequest) returns (SetResponse);
//	  rpc Delete(DeleteRequest) returns (DeleteResponse);
//	  rpc Health(HealthRequest) returns (HealthResponse);
//	  rpc List(ListRequest) returns (stream ListResponse);
//	}
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Set", Handler: setHandler},
		{MethodName: "Delete", Handler: deleteHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "List", Handler: listHandler, ServerStreams: true},
	},
	Metadata: "kvgate/v1",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Get"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StoreServer).Get(ctx, req.(*GetRequest))
	})
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Set"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StoreServer).Set(ctx, req.(*SetRequest))
	})
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Delete"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StoreServer).Delete(ctx, req.(*DeleteRequest))
	})
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Health"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(StoreServer).Health(ctx, req.(*HealthRequest))
	})
}

func listHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StoreServer).List(in, &listServerStream{stream})
}

type listServerStream struct {
	grpc.ServerStream
}

func (s *listServerStream) Send(m *ListResponse) error { return s.SendMsg(m) }

// secondsToTTL converts a wire TTL into the core's duration form.
// Negative stays negative so the core rejects it as invalid.
func secondsToTTL(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Package remote bridges an oracle.Oracle over gRPC so the simulator can run
// in its own process (typically on the Windows host that owns the Aspen
// session). Messages are protobuf well-known types; no generated code is
// involved.
package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "capture.oracle.v1.Oracle"

const (
	methodPing     = "Ping"
	methodSet      = "Set"
	methodEvaluate = "Evaluate"
	methodGet      = "Get"
)

// Field names of the Struct messages.
const (
	fieldPath   = "path"
	fieldValue  = "value"
	fieldStatus = "status"
	fieldCode   = "code"
)

// OracleServer is the server API of the oracle service.
type OracleServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// Set takes {"path": string, "value": number}.
	Set(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// Evaluate returns {"status": string, "code": number}.
	Evaluate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error)
}

// ServiceDesc describes the oracle service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodPing,
			Handler: unary(methodPing, func(s OracleServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: methodSet,
			Handler: unary(methodSet, func(s OracleServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Set(ctx, in)
			}),
		},
		{
			MethodName: methodEvaluate,
			Handler: unary(methodEvaluate, func(s OracleServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Evaluate(ctx, in)
			}),
		},
		{
			MethodName: methodGet,
			Handler: unary(methodGet, func(s OracleServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return s.Get(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "capture/oracle/v1/oracle.proto",
}

// RegisterOracleServer registers srv on s.
func RegisterOracleServer(s grpc.ServiceRegistrar, srv OracleServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds a method handler that decodes Req and dispatches to call,
// going through the server interceptor when one is installed.
func unary[Req any](method string, call func(OracleServer, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OracleServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OracleServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

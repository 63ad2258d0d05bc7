// Package rpc exposes backtests over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the REST
// API, so no generated code is needed on either side.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "strategylab.v1.Backtests"

// Full method names.
const (
	RunBacktestMethod    = "/" + ServiceName + "/RunBacktest"
	GetBacktestMethod    = "/" + ServiceName + "/GetBacktest"
	ListStrategiesMethod = "/" + ServiceName + "/ListStrategies"
)

// BacktestsServer is the server API for the Backtests service.
type BacktestsServer interface {
	RunBacktest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBacktest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStrategies(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Backtests service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BacktestsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunBacktest",
			Handler:    unaryHandler(RunBacktestMethod, BacktestsServer.RunBacktest),
		},
		{
			MethodName: "GetBacktest",
			Handler:    unaryHandler(GetBacktestMethod, BacktestsServer.GetBacktest),
		},
		{
			MethodName: "ListStrategies",
			Handler:    unaryHandler(ListStrategiesMethod, BacktestsServer.ListStrategies),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "strategylab/v1/backtests.proto",
}

type unaryMethod func(BacktestsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BacktestsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BacktestsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding %T as object: %w", v, err)
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into v through its JSON encoding.
func fromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

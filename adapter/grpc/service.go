// Package grpc exposes the adapter over gRPC for local development.
//
// The service carries invocation payloads as google.protobuf.Struct values so
// no generated code is needed: a caller sends the same JSON object the Lambda
// runtime would deliver and receives the serialized result.
package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
)

// Service and method names.
const (
	ServiceName        = "lambdaadapter.v1.InvokeService"
	InvokeFullMethod   = "/" + ServiceName + "/Invoke"
	ClassifyFullMethod = "/" + ServiceName + "/Classify"
)

// Logger interface for the server.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Invoker handles one raw invocation payload. *handler.Adapter satisfies it.
type Invoker interface {
	Handle(ctx context.Context, payload json.RawMessage) (any, error)
}

// InvokeServer implements InvokeService.
type InvokeServer struct {
	invoker Invoker
	logger  Logger
}

// NewInvokeServer creates an InvokeServer. A nil logger discards output.
func NewInvokeServer(invoker Invoker, logger Logger) *InvokeServer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &InvokeServer{invoker: invoker, logger: logger}
}

// Invoke runs the payload through the adapter and returns the result object.
func (s *InvokeServer) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode payload: %v", err)
	}

	result, err := s.invoker.Handle(ctx, payload)
	if err != nil {
		var decodeErr *envelope.DecodeError
		if errors.As(err, &decodeErr) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	out, err := toStruct(result)
	if err != nil {
		s.logger.Error("grpc_result_encode_failed", "error", err.Error())
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// Classify reports the variant and trigger event source of a payload
// without dispatching it.
func (s *InvokeServer) Classify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw := req.AsMap()
	out := map[string]any{"variant": envelope.Classify(raw).String()}
	if src, ok := envelope.EventSource(raw); ok {
		out["event_source"] = src
	}
	return structpb.NewStruct(out)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// SERVICE DESCRIPTOR
// =============================================================================

// InvokeServiceServer is the server API for InvokeService.
type InvokeServiceServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(fullMethod string, call func(InvokeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InvokeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InvokeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InvokeServiceDesc describes InvokeService for grpc.Server.RegisterService.
var InvokeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InvokeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    unaryHandler(InvokeFullMethod, InvokeServiceServer.Invoke),
		},
		{
			MethodName: "Classify",
			Handler:    unaryHandler(ClassifyFullMethod, InvokeServiceServer.Classify),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lambdaadapter/v1/invoke.proto",
}

// RegisterInvokeServiceServer registers srv on s.
func RegisterInvokeServiceServer(s grpc.ServiceRegistrar, srv InvokeServiceServer) {
	s.RegisterService(&InvokeServiceDesc, srv)
}

// =============================================================================
// CLIENT
// =============================================================================

// InvokeClient calls InvokeService.
type InvokeClient struct {
	cc grpc.ClientConnInterface
}

// NewInvokeClient creates a client on cc.
func NewInvokeClient(cc grpc.ClientConnInterface) *InvokeClient {
	return &InvokeClient{cc: cc}
}

// Invoke sends one payload.
func (c *InvokeClient) Invoke(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, InvokeFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Classify asks the server to classify a payload.
func (c *InvokeClient) Classify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ClassifyFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// InvokeJSON is a convenience wrapper taking and returning raw JSON.
func (c *InvokeClient) InvokeJSON(ctx context.Context, payload []byte, opts ...grpc.CallOption) ([]byte, error) {
	in := &structpb.Struct{}
	if err := protojson.Unmarshal(payload, in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "payload is not a JSON object: %v", err)
	}
	out, err := c.Invoke(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(out)
}

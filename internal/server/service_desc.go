package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "idextract.v1.Extractor"

const (
	methodExtract    = "/" + ServiceName + "/Extract"
	methodListRuns   = "/" + ServiceName + "/ListRuns"
	methodExportRuns = "/" + ServiceName + "/ExportRuns"
)

// ExtractorServer is the server API. Messages are google.protobuf.Struct so
// clients need no generated code; field names are documented on Service.
type ExtractorServer interface {
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&extractorServiceDesc, srv)
}

func unaryHandler(method string, call func(ExtractorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var extractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler(methodExtract, ExtractorServer.Extract)},
		{MethodName: "ListRuns", Handler: unaryHandler(methodListRuns, ExtractorServer.ListRuns)},
		{MethodName: "ExportRuns", Handler: unaryHandler(methodExportRuns, ExtractorServer.ExportRuns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "idextract/v1/extractor.proto",
}

// ExtractorClient is the client API for ExtractorServer.
type ExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractorClient(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

func (c *ExtractorClient) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodExtract, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExtractorClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListRuns, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ExtractorClient) ExportRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodExportRuns, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

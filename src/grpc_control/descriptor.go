package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name, see control.proto.
const ServiceName = "mememarket.control.MarketControl"

// MarketControlServer is the read-mostly admin API over the running market.
// Requests and replies are protobuf well-known types, so no generated code is needed.
type MarketControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListStocks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStock(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetHistory(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetStockStats(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RecentTransactions(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	GetUser(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListPublishers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RemovePublisher(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

var MarketControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", MarketControlServer.GetStatus),
		unary("ListStocks", MarketControlServer.ListStocks),
		unary("GetStock", MarketControlServer.GetStock),
		unary("GetHistory", MarketControlServer.GetHistory),
		unary("GetStockStats", MarketControlServer.GetStockStats),
		unary("RecentTransactions", MarketControlServer.RecentTransactions),
		unary("GetUser", MarketControlServer.GetUser),
		unary("ListPublishers", MarketControlServer.ListPublishers),
		unary("RemovePublisher", MarketControlServer.RemovePublisher),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "control.proto",
}

func RegisterMarketControlServer(s grpc.ServiceRegistrar, srv MarketControlServer) {
	s.RegisterService(&MarketControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method handler generated stubs would otherwise provide.
func unary[Req any](method string, call func(MarketControlServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MarketControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MarketControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

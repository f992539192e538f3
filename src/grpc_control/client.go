package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls MarketControl over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// -----------------------------------------------------------------------------

func (c *Client) call(ctx context.Context, method string, in interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetStatus", &emptypb.Empty{}, opts...)
}

func (c *Client) ListStocks(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ListStocks", &emptypb.Empty{}, opts...)
}

func (c *Client) GetStock(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetStock", wrapperspb.String(name), opts...)
}

func (c *Client) GetHistory(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetHistory", wrapperspb.String(name), opts...)
}

func (c *Client) GetStockStats(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetStockStats", wrapperspb.String(name), opts...)
}

func (c *Client) RecentTransactions(ctx context.Context, n int32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RecentTransactions", wrapperspb.Int32(n), opts...)
}

func (c *Client) GetUser(ctx context.Context, idOrName string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetUser", wrapperspb.String(idOrName), opts...)
}

func (c *Client) ListPublishers(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ListPublishers", &emptypb.Empty{}, opts...)
}

func (c *Client) RemovePublisher(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "RemovePublisher", wrapperspb.String(name), opts...)
}

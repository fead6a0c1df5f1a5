package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls PaymentsService over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Health(ctx context.Context, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	out := new(types.HealthResponse)
	if err := c.invoke(ctx, "Health", &types.HealthRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest, opts ...grpc.CallOption) (*types.CreatePaymentResponse, error) {
	out := new(types.CreatePaymentResponse)
	if err := c.invoke(ctx, "CreatePayment", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, req *types.GetOrderRequest, opts ...grpc.CallOption) (*types.OrderDetailsResponse, error) {
	out := new(types.OrderDetailsResponse)
	if err := c.invoke(ctx, "GetOrder", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, req *types.GetOrderRequest, opts ...grpc.CallOption) (*types.OrderResponse, error) {
	out := new(types.OrderResponse)
	if err := c.invoke(ctx, "GetStatus", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListOrders(ctx context.Context, req *types.ListOrdersRequest, opts ...grpc.CallOption) (*types.ListOrdersResponse, error) {
	out := new(types.ListOrdersResponse)
	if err := c.invoke(ctx, "ListOrders", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CancelOrder(ctx context.Context, req *types.CancelOrderRequest, opts ...grpc.CallOption) (*types.OrderResponse, error) {
	out := new(types.OrderResponse)
	if err := c.invoke(ctx, "CancelOrder", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RefundOrder(ctx context.Context, req *types.RefundOrderRequest, opts ...grpc.CallOption) (*types.OrderDetailsResponse, error) {
	out := new(types.OrderDetailsResponse)
	if err := c.invoke(ctx, "RefundOrder", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMethods(ctx context.Context, req *types.ListMethodsRequest, opts ...grpc.CallOption) (*types.ListMethodsResponse, error) {
	out := new(types.ListMethodsResponse)
	if err := c.invoke(ctx, "ListMethods", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) QuoteDiscount(ctx context.Context, req *types.QuoteDiscountRequest, opts ...grpc.CallOption) (*types.DiscountQuoteResponse, error) {
	out := new(types.DiscountQuoteResponse)
	if err := c.invoke(ctx, "QuoteDiscount", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStats(ctx context.Context, req *types.StatsRequest, opts ...grpc.CallOption) (*types.StatsResponse, error) {
	out := new(types.StatsResponse)
	if err := c.invoke(ctx, "GetStats", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	payload, err := toStruct(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, payload, reply, opts...); err != nil {
		return err
	}
	return fromStruct(reply, out)
}

package grpc

import (
	"context"
	"encoding/json"

	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Messages travel as
// google.protobuf.Struct and are decoded into the shared request types.
const ServiceName = "sponsorships.PaymentsService"

type PaymentsServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	CreatePayment(context.Context, *types.CreatePaymentRequest) (*types.CreatePaymentResponse, error)
	GetOrder(context.Context, *types.GetOrderRequest) (*types.OrderDetailsResponse, error)
	GetStatus(context.Context, *types.GetOrderRequest) (*types.OrderResponse, error)
	ListOrders(context.Context, *types.ListOrdersRequest) (*types.ListOrdersResponse, error)
	CancelOrder(context.Context, *types.CancelOrderRequest) (*types.OrderResponse, error)
	RefundOrder(context.Context, *types.RefundOrderRequest) (*types.OrderDetailsResponse, error)
	ListMethods(context.Context, *types.ListMethodsRequest) (*types.ListMethodsResponse, error)
	QuoteDiscount(context.Context, *types.QuoteDiscountRequest) (*types.DiscountQuoteResponse, error)
	GetStats(context.Context, *types.StatsRequest) (*types.StatsResponse, error)
}

var PaymentsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", PaymentsServiceServer.Health)},
		{MethodName: "CreatePayment", Handler: unaryHandler("CreatePayment", PaymentsServiceServer.CreatePayment)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", PaymentsServiceServer.GetOrder)},
		{MethodName: "GetStatus", Handler: unaryHandler("GetStatus", PaymentsServiceServer.GetStatus)},
		{MethodName: "ListOrders", Handler: unaryHandler("ListOrders", PaymentsServiceServer.ListOrders)},
		{MethodName: "CancelOrder", Handler: unaryHandler("CancelOrder", PaymentsServiceServer.CancelOrder)},
		{MethodName: "RefundOrder", Handler: unaryHandler("RefundOrder", PaymentsServiceServer.RefundOrder)},
		{MethodName: "ListMethods", Handler: unaryHandler("ListMethods", PaymentsServiceServer.ListMethods)},
		{MethodName: "QuoteDiscount", Handler: unaryHandler("QuoteDiscount", PaymentsServiceServer.QuoteDiscount)},
		{MethodName: "GetStats", Handler: unaryHandler("GetStats", PaymentsServiceServer.GetStats)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterPaymentsServiceServer(registrar grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	registrar.RegisterService(&PaymentsServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(PaymentsServiceServer, context.Context, *Req) (*Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + method

	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		req := new(Req)
		if err := fromStruct(in, req); err != nil {
			return nil, status.Error(codes.InvalidArgument, "malformed request message")
		}

		handler := func(ctx context.Context, r interface{}) (interface{}, error) {
			return call(srv.(PaymentsServiceServer), ctx, r.(*Req))
		}

		var (
			resp interface{}
			err  error
		)
		if interceptor == nil {
			resp, err = handler(ctx, req)
		} else {
			resp, err = interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
		}
		if err != nil {
			return nil, err
		}

		out, err := toStruct(resp)
		if err != nil {
			return nil, status.Error(codes.Internal, "internal server error")
		}
		return out, nil
	}
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if string(raw) == "null" {
		return out, nil
	}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v interface{}) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

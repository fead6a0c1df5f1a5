package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-sponsorships/app/mapper"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	orders *service.PaymentService
}

func NewServer(orders *service.PaymentService) *Server {
	return &Server{orders: orders}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.CreatePaymentResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		loggerWithContext(ctx).WithError(err).Debug("Create payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.orders.CreatePayment(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Create payment failed")
	}

	return mapper.CreatePaymentToResponse(result), nil
}

func (s *Server) GetOrder(ctx context.Context, req *types.GetOrderRequest) (*types.OrderDetailsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	details, err := s.orders.GetOrder(ctx, req.GetOrderId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get order failed")
	}

	return mapper.OrderDetailsToResponse(details), nil
}

func (s *Server) GetStatus(ctx context.Context, req *types.GetOrderRequest) (*types.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orders.GetStatus(ctx, req.GetOrderId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get order status failed")
	}

	return mapper.OrderToResponse(order), nil
}

func (s *Server) ListOrders(ctx context.Context, req *types.ListOrdersRequest) (*types.ListOrdersResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.orders.ListOrders(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "List orders failed")
	}

	return &types.ListOrdersResponse{Orders: mapper.OrdersToResponse(items)}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *types.CancelOrderRequest) (*types.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orders.Cancel(ctx, req.GetOrderId(), req.GetReason())
	if err != nil {
		return nil, statusFromError(ctx, err, "Cancel order failed")
	}

	return mapper.OrderToResponse(order), nil
}

func (s *Server) RefundOrder(ctx context.Context, req *types.RefundOrderRequest) (*types.OrderDetailsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	details, err := s.orders.RecordRefund(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Refund order failed")
	}

	return mapper.OrderDetailsToResponse(details), nil
}

func (s *Server) ListMethods(_ context.Context, req *types.ListMethodsRequest) (*types.ListMethodsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	amount := req.AmountValue()
	return mapper.MethodsToResponse(s.orders.ListMethods(amount), amount), nil
}

func (s *Server) QuoteDiscount(ctx context.Context, req *types.QuoteDiscountRequest) (*types.DiscountQuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	quote, err := s.orders.QuoteDiscount(ctx, req.GetCode(), req.AmountValue())
	if err != nil {
		return nil, statusFromError(ctx, err, "Quote discount failed")
	}

	return mapper.QuoteToResponse(quote), nil
}

func (s *Server) GetStats(ctx context.Context, req *types.StatsRequest) (*types.StatsResponse, error) {
	stats, err := s.orders.Statistics(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Order statistics failed")
	}

	return mapper.StatsToResponse(stats), nil
}

func statusFromError(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrProviderRejected):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrOrderBusy):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		loggerWithContext(ctx).WithError(err).Warn(logMessage)
		return status.Error(codes.Unavailable, "payment provider unavailable")
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}

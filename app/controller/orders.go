package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sponsorships/app/factory"
	"github.com/vibast-solutions/ms-go-sponsorships/app/mapper"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
)

type OrderController struct {
	orders *service.PaymentService
	logger logrus.FieldLogger
}

func NewOrderController(orders *service.PaymentService) *OrderController {
	return &OrderController{
		orders: orders,
		logger: factory.NewModuleLogger("orders-controller"),
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.orders.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create payment failed")
	}

	return ctx.JSON(http.StatusCreated, mapper.CreatePaymentToResponse(result))
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	req, err := types.NewGetOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	details, err := c.orders.GetOrder(ctx.Request().Context(), req.GetOrderId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get order failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderDetailsToResponse(details))
}

// GetStatus reconciles the order with its provider before answering.
func (c *OrderController) GetStatus(ctx echo.Context) error {
	req, err := types.NewGetOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orders.GetStatus(ctx.Request().Context(), req.GetOrderId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get order status failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(order))
}

func (c *OrderController) ListOrders(ctx echo.Context) error {
	req, err := types.NewListOrdersRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.orders.ListOrders(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "List orders failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListOrdersResponse{Orders: mapper.OrdersToResponse(items)})
}

func (c *OrderController) CancelOrder(ctx echo.Context) error {
	req, err := types.NewCancelOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orders.Cancel(ctx.Request().Context(), req.GetOrderId(), req.GetReason())
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel order failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(order))
}

func (c *OrderController) RefundOrder(ctx echo.Context) error {
	req, err := types.NewRefundOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	details, err := c.orders.RecordRefund(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Refund order failed")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderDetailsToResponse(details))
}

func (c *OrderController) ListPackages(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, mapper.PackagesToResponse(c.orders.ListPackages()))
}

func (c *OrderController) ListMethods(ctx echo.Context) error {
	req, err := types.NewListMethodsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	amount := req.AmountValue()
	return ctx.JSON(http.StatusOK, mapper.MethodsToResponse(c.orders.ListMethods(amount), amount))
}

func (c *OrderController) QuoteDiscount(ctx echo.Context) error {
	req, err := types.NewQuoteDiscountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	quote, err := c.orders.QuoteDiscount(ctx.Request().Context(), req.GetCode(), req.AmountValue())
	if err != nil {
		return c.writeServiceError(ctx, err, "Quote discount failed")
	}

	return ctx.JSON(http.StatusOK, mapper.QuoteToResponse(quote))
}

func (c *OrderController) Stats(ctx echo.Context) error {
	req, err := types.NewStatsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}

	stats, err := c.orders.Statistics(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Order statistics failed")
	}
	return ctx.JSON(http.StatusOK, mapper.StatsToResponse(stats))
}

func (c *OrderController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return c.writeError(ctx, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrOrderBusy):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrProviderRejected):
		return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(logMessage)
		return c.writeError(ctx, http.StatusBadGateway, "payment provider unavailable")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *OrderController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sponsorships/app/factory"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
)

const maxCallbackBody = 1 << 20

// WebhookController receives provider notifications. Providers only look at
// the status code and body text, so every answer is the provider's own ack.
type WebhookController struct {
	orders *service.PaymentService
	logger logrus.FieldLogger
}

func NewWebhookController(orders *service.PaymentService) *WebhookController {
	return &WebhookController{
		orders: orders,
		logger: factory.NewModuleLogger("webhook-controller"),
	}
}

func (c *WebhookController) HandleProviderCallback(ctx echo.Context) error {
	providerCode := ctx.Param("provider")

	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxCallbackBody+1))
	if err != nil {
		return ctx.String(http.StatusBadRequest, "invalid request body")
	}
	payload, err := provider.ParseCallbackPayload(ctx.Request().Header.Get(echo.HeaderContentType), body)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("provider", providerCode).Warn("Unreadable provider callback")
		return ctx.String(http.StatusBadRequest, "invalid request body")
	}

	result, err := c.orders.HandleCallback(ctx.Request().Context(), providerCode, payload)
	if result == nil {
		if errors.Is(err, service.ErrProviderUnsupported) {
			return ctx.String(http.StatusNotFound, "unknown provider")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle provider callback failed")
		return ctx.String(http.StatusInternalServerError, "internal server error")
	}

	return ctx.String(result.Ack.StatusCode, result.Ack.Body)
}

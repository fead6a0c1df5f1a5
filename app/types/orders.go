package types

import (
	"errors"
	"io"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	maxMessageRunes  = 500
)

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.RequestId = strings.TrimSpace(body.RequestId)
	if body.RequestId == "" {
		body.RequestId = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.Normalize()

	return &body, nil
}

// Normalize trims the request and canonicalizes codes.
func (r *CreatePaymentRequest) Normalize() {
	r.RequestId = strings.TrimSpace(r.RequestId)
	r.CallerService = strings.TrimSpace(r.CallerService)
	r.UserId = strings.TrimSpace(r.UserId)
	r.Package = strings.ToLower(strings.TrimSpace(r.Package))
	r.Amount = strings.TrimSpace(r.Amount)
	r.DiscountCode = strings.ToUpper(strings.TrimSpace(r.DiscountCode))
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *CreatePaymentRequest) Validate() error {
	if r.GetRequestId() == "" {
		return errors.New("request_id is required")
	}
	if r.GetCallerService() == "" {
		return errors.New("caller_service is required")
	}
	if r.GetPackage() == "" {
		return errors.New("package is required")
	}
	if r.GetProvider() == "" {
		return errors.New("provider is required")
	}
	if r.GetMethod() == "" {
		return errors.New("method is required")
	}
	if r.GetPackage() == "custom" && r.GetAmount() == "" {
		return errors.New("amount is required for custom packages")
	}
	if r.GetAmount() != "" {
		if err := validatePositiveAmount(r.GetAmount()); err != nil {
			return err
		}
	}
	if r.GetCustomerEmail() != "" {
		if _, err := mail.ParseAddress(r.GetCustomerEmail()); err != nil {
			return errors.New("customer_email is invalid")
		}
	}
	if utf8.RuneCountInString(r.GetMessage()) > maxMessageRunes {
		return errors.New("message must be at most 500 characters")
	}
	return nil
}

func NewGetOrderRequestFromContext(ctx echo.Context) (*GetOrderRequest, error) {
	return &GetOrderRequest{OrderId: strings.TrimSpace(ctx.Param("order_id"))}, nil
}

func (r *GetOrderRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("order_id is required")
	}
	return nil
}

func NewListOrdersRequestFromContext(ctx echo.Context) (*ListOrdersRequest, error) {
	req := &ListOrdersRequest{
		UserId:   strings.TrimSpace(ctx.QueryParam("user_id")),
		Provider: strings.ToLower(strings.TrimSpace(ctx.QueryParam("provider"))),
		Package:  strings.ToLower(strings.TrimSpace(ctx.QueryParam("package"))),
		Status:   strings.ToLower(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:    defaultListLimit,
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListOrdersRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultListLimit
	}
	if r.GetLimit() <= 0 || r.GetLimit() > maxListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

func NewCancelOrderRequestFromContext(ctx echo.Context) (*CancelOrderRequest, error) {
	var body CancelOrderRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("order_id"))
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *CancelOrderRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("order_id is required")
	}
	if utf8.RuneCountInString(r.GetReason()) > maxMessageRunes {
		return errors.New("reason must be at most 500 characters")
	}
	return nil
}

func NewRefundOrderRequestFromContext(ctx echo.Context) (*RefundOrderRequest, error) {
	var body RefundOrderRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("order_id"))
	body.Amount = strings.TrimSpace(body.Amount)
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *RefundOrderRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("order_id is required")
	}
	if r.GetAmount() != "" {
		if err := validatePositiveAmount(r.GetAmount()); err != nil {
			return err
		}
	}
	if utf8.RuneCountInString(r.GetReason()) > maxMessageRunes {
		return errors.New("reason must be at most 500 characters")
	}
	return nil
}

func NewListMethodsRequestFromContext(ctx echo.Context) (*ListMethodsRequest, error) {
	return &ListMethodsRequest{Amount: strings.TrimSpace(ctx.QueryParam("amount"))}, nil
}

func (r *ListMethodsRequest) Validate() error {
	if r.GetAmount() == "" {
		return nil
	}
	amount, err := decimal.NewFromString(r.GetAmount())
	if err != nil || amount.IsNegative() {
		return errors.New("amount must be a non-negative number")
	}
	return nil
}

// AmountValue is zero when no amount was given.
func (r *ListMethodsRequest) AmountValue() decimal.Decimal {
	amount, err := decimal.NewFromString(r.GetAmount())
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func NewQuoteDiscountRequestFromContext(ctx echo.Context) (*QuoteDiscountRequest, error) {
	var body QuoteDiscountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
	body.Amount = strings.TrimSpace(body.Amount)
	return &body, nil
}

func (r *QuoteDiscountRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	return validatePositiveAmount(r.GetAmount())
}

func (r *QuoteDiscountRequest) AmountValue() decimal.Decimal {
	amount, err := decimal.NewFromString(r.GetAmount())
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func NewStatsRequestFromContext(ctx echo.Context) (*StatsRequest, error) {
	return &StatsRequest{
		From: strings.TrimSpace(ctx.QueryParam("from")),
		To:   strings.TrimSpace(ctx.QueryParam("to")),
	}, nil
}

func validatePositiveAmount(raw string) error {
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return errors.New("amount must be a positive number")
	}
	return nil
}

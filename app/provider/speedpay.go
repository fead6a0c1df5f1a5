package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/paycrypto"
)

const CodeSpeedPay = "speedpay"

var speedpayMethods = []Method{
	{Code: "credit_card", ProviderCode: "CC", Name: "Credit card", FeeRate: mustDecimal("0.025"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("50000"), ProcessingTime: "instant"},
	{Code: "atm", ProviderCode: "ATM", Name: "ATM transfer", FeeRate: mustDecimal("0.015"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("50000"), ProcessingTime: "within 3 days"},
	{Code: "cvs", ProviderCode: "CVS", Name: "Convenience store", FeeRate: mustDecimal("0.020"), MinAmount: mustDecimal("10"), MaxAmount: mustDecimal("20000"), ProcessingTime: "within 7 days"},
	{Code: "bank_transfer", ProviderCode: "BANK", Name: "Bank transfer", FeeRate: mustDecimal("0.010"), MinAmount: mustDecimal("100"), MaxAmount: mustDecimal("50000"), ProcessingTime: "1-2 business days"},
}

type SpeedPayConfig struct {
	BaseURL         string
	MerchantID      string
	APIKey          string
	SecretKey       string
	CallbackURL     string
	ReturnURL       string
	Currency        string
	DisabledMethods []string
}

type SpeedPayProvider struct {
	cfg       SpeedPayConfig
	methods   []Method
	transport *Transport
	scheme    paycrypto.Scheme
	now       func() time.Time
}

type speedpayResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	PaymentID     string `json:"payment_id"`
	PaymentURL    string `json:"payment_url"`
	QRCode        string `json:"qr_code"`
	ExpiresAt     string `json:"expires_at"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	RefundID      string `json:"refund_id"`
}

func NewSpeedPayProvider(cfg SpeedPayConfig, transport *Transport) *SpeedPayProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Currency == "" {
		cfg.Currency = "TWD"
	}
	return &SpeedPayProvider{
		cfg:       cfg,
		methods:   methodsWith(speedpayMethods, cfg.DisabledMethods),
		transport: transport,
		scheme: paycrypto.Scheme{
			Digest:    paycrypto.DigestSHA256,
			Framing:   paycrypto.FramingKeySuffix,
			SkipEmpty: true,
		},
		now: time.Now,
	}
}

func (p *SpeedPayProvider) Code() string {
	return CodeSpeedPay
}

func (p *SpeedPayProvider) Name() string {
	return "SpeedPay"
}

func (p *SpeedPayProvider) Methods() []Method {
	return p.methods
}

func (p *SpeedPayProvider) secret() paycrypto.Secret {
	return paycrypto.Secret{Key: p.cfg.SecretKey}
}

func (p *SpeedPayProvider) CreateOrder(ctx context.Context, input *CreateInput) (*CreateOutput, error) {
	method, err := checkCreate(p, input)
	if err != nil {
		return nil, err
	}
	if !input.Amount.Equal(input.Amount.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount must be whole TWD", ErrAmountOutOfRange)
	}
	if p.cfg.MerchantID == "" || p.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	resp, err := p.call(ctx, "create", "/api/v1/payments/create", map[string]string{
		"order_id":       input.OrderID,
		"amount":         input.Amount.StringFixed(0),
		"currency":       p.cfg.Currency,
		"payment_method": method.ProviderCode,
		"description":    limitRunes(input.ItemName, 100),
		"callback_url":   p.cfg.CallbackURL,
		"return_url":     p.cfg.ReturnURL,
		"customer_name":  input.CustomerName,
		"customer_email": input.CustomerEmail,
		"customer_phone": input.CustomerPhone,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, resp.Message)
	}

	out := &CreateOutput{
		PaymentURL:        resp.PaymentURL,
		ProviderReference: resp.PaymentID,
		QRCode:            resp.QRCode,
		ExpiresAt:         input.ExpiresAt,
	}
	if expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
		out.ExpiresAt = expiresAt
	}
	return out, nil
}

func (p *SpeedPayProvider) QueryStatus(ctx context.Context, input *QueryInput) (*QueryResult, error) {
	resp, err := p.call(ctx, "query", "/api/v1/payments/query", map[string]string{
		"order_id": input.OrderID,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, resp.Message)
	}

	var status Status
	switch strings.ToLower(resp.Status) {
	case "success":
		status = StatusCompleted
	case "failed", "cancelled", "expired":
		status = StatusFailed
	default:
		// pending, processing and anything not yet known keep polling.
		status = StatusPending
	}

	return &QueryResult{Status: status, ProviderTxnID: resp.TransactionID, Message: resp.Status}, nil
}

func (p *SpeedPayProvider) ExtractOrderID(payload *CallbackPayload) (string, error) {
	if payload == nil {
		return "", ErrMalformedCallback
	}
	orderID := field(payload.Fields, "order_id", "out_trade_no")
	if orderID == "" {
		return "", fmt.Errorf("%w: missing order_id", ErrMalformedCallback)
	}
	return orderID, nil
}

func (p *SpeedPayProvider) ValidateCallback(_ context.Context, payload *CallbackPayload) (*CallbackResult, error) {
	if payload == nil {
		return nil, ErrMalformedCallback
	}
	fields := payload.Fields
	orderID := field(fields, "order_id", "out_trade_no")
	for _, name := range []string{"merchant_id", "amount", "status", "signature"} {
		if strings.TrimSpace(fields[name]) == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedCallback, name)
		}
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing order_id", ErrMalformedCallback)
	}
	if fields["merchant_id"] != p.cfg.MerchantID {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrMerchantMismatch)
	}
	if !paycrypto.Verify(fields, fields["signature"], p.secret(), p.scheme) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticity, ErrInvalidSignature)
	}

	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", ErrMalformedCallback, fields["amount"])
	}

	status := StatusFailed
	switch strings.ToLower(fields["status"]) {
	case "success":
		status = StatusCompleted
	case "pending", "processing":
		status = StatusPending
	}

	result := &CallbackResult{
		OrderID:       orderID,
		Status:        status,
		Amount:        amount,
		ProviderTxnID: field(fields, "transaction_id", "payment_id"),
		Message:       fields["message"],
	}
	if paidAt, err := time.Parse(time.RFC3339, fields["paid_at"]); err == nil && status == StatusCompleted {
		result.PaidAt = &paidAt
	}
	return result, nil
}

func (p *SpeedPayProvider) Cancel(ctx context.Context, orderID, reason string) (*OperationResult, error) {
	if reason == "" {
		reason = "cancelled by sponsor"
	}
	resp, err := p.call(ctx, "cancel", "/api/v1/payments/cancel", map[string]string{
		"order_id": orderID,
		"reason":   reason,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &OperationResult{Status: OperationFailed, Message: resp.Message}, nil
	}
	return &OperationResult{Status: OperationSucceeded, Message: resp.Message}, nil
}

func (p *SpeedPayProvider) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*OperationResult, error) {
	if reason == "" {
		reason = "merchant refund"
	}
	fields := map[string]string{
		"order_id": orderID,
		"reason":   reason,
	}
	if amount.IsPositive() {
		fields["refund_amount"] = amount.StringFixed(0)
	}
	resp, err := p.call(ctx, "refund", "/api/v1/payments/refund", fields)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return &OperationResult{Status: OperationFailed, Message: resp.Message}, nil
	}
	return &OperationResult{Status: OperationSucceeded, Reference: resp.RefundID, Message: resp.Message}, nil
}

func (p *SpeedPayProvider) Acknowledge(outcome AckOutcome, message string) Ack {
	switch outcome {
	case AckAccepted, AckDuplicate:
		return okAck("success")
	case AckBusy:
		return okAck("processing")
	case AckRejected:
		return Ack{StatusCode: http.StatusBadRequest, Body: "fail"}
	default:
		return Ack{StatusCode: http.StatusInternalServerError, Body: "error"}
	}
}

// call signs fields with merchant id and timestamp and posts them as JSON.
func (p *SpeedPayProvider) call(ctx context.Context, operation, path string, fields map[string]string) (*speedpayResponse, error) {
	fields["merchant_id"] = p.cfg.MerchantID
	fields["timestamp"] = strconv.FormatInt(p.now().Unix(), 10)
	signature, err := paycrypto.Sign(fields, p.secret(), p.scheme)
	if err != nil {
		return nil, err
	}
	fields["signature"] = signature

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	resp, err := p.transport.Do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Merchant-ID", p.cfg.MerchantID)
		if p.cfg.APIKey != "" {
			req.Header.Set("X-API-Key", p.cfg.APIKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var out speedpayResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable %s response", ErrProviderUnavailable, operation)
	}
	return &out, nil
}

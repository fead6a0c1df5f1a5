package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the canonical outcome every provider status is mapped onto.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Method describes one payment method a provider offers.
type Method struct {
	Code           string
	ProviderCode   string
	Name           string
	FeeRate        decimal.Decimal
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	ProcessingTime string
	Enabled        bool

	// Currency is set when the method settles in something other than the
	// service currency.
	Currency string
}

func (m Method) Admits(amount decimal.Decimal) bool {
	return !amount.LessThan(m.MinAmount) && !amount.GreaterThan(m.MaxAmount)
}

type CreateInput struct {
	OrderID   string
	Method    string
	Amount    decimal.Decimal
	Currency  string
	ItemName  string
	Note      string
	CreatedAt time.Time
	ExpiresAt time.Time

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

type CreateOutput struct {
	PaymentURL        string
	FormFields        map[string]string
	ProviderReference string
	QRCode            string

	Network               string
	Address               string
	TotalAmount           decimal.Decimal
	RequiredConfirmations int
	Instructions          []string

	ExpiresAt time.Time
}

type QueryInput struct {
	OrderID           string
	ProviderReference string
	Method            string
	Amount            decimal.Decimal
}

// QueryResult is a polled status. Amount is zero when the provider does not
// report what was paid.
type QueryResult struct {
	Status        Status
	Amount        decimal.Decimal
	ProviderTxnID string
	Confirmations int
	Message       string
}

// CallbackPayload is an inbound notification as received. Fields holds the
// flattened form or JSON body.
type CallbackPayload struct {
	ContentType string
	Body        []byte
	Fields      map[string]string
}

type CallbackResult struct {
	OrderID       string
	Status        Status
	Amount        decimal.Decimal
	ProviderTxnID string
	Confirmations int
	Message       string
	PaidAt        *time.Time
}

type OperationStatus string

const (
	OperationSucceeded   OperationStatus = "succeeded"
	OperationFailed      OperationStatus = "failed"
	OperationUnsupported OperationStatus = "unsupported"
)

type OperationResult struct {
	Status    OperationStatus
	Reference string
	Message   string
}

func unsupported(operation string) *OperationResult {
	return &OperationResult{Status: OperationUnsupported, Message: operation + " is not supported by this provider"}
}

type AckOutcome int

const (
	AckAccepted AckOutcome = iota
	AckDuplicate
	AckRejected
	AckBusy
	AckFailed
)

// Ack is the response a provider expects to receive for a callback.
type Ack struct {
	StatusCode int
	Body       string
}

type Provider interface {
	Code() string
	Name() string
	Methods() []Method
	CreateOrder(ctx context.Context, input *CreateInput) (*CreateOutput, error)
	QueryStatus(ctx context.Context, input *QueryInput) (*QueryResult, error)
	ExtractOrderID(payload *CallbackPayload) (string, error)
	ValidateCallback(ctx context.Context, payload *CallbackPayload) (*CallbackResult, error)
	Cancel(ctx context.Context, orderID, reason string) (*OperationResult, error)
	Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*OperationResult, error)
	Acknowledge(outcome AckOutcome, message string) Ack
}

// FindMethod returns the enabled method of p named code.
func FindMethod(p Provider, code string) (Method, error) {
	for _, m := range p.Methods() {
		if m.Code == code {
			if !m.Enabled {
				return Method{}, ErrMethodNotSupported
			}
			return m, nil
		}
	}
	return Method{}, ErrMethodNotSupported
}

// checkCreate rejects unknown methods and out of range amounts before any
// network activity.
func checkCreate(p Provider, input *CreateInput) (Method, error) {
	if input == nil {
		return Method{}, ErrMethodNotSupported
	}
	method, err := FindMethod(p, input.Method)
	if err != nil {
		return Method{}, err
	}
	if !method.Admits(input.Amount) {
		return Method{}, ErrAmountOutOfRange
	}
	return method, nil
}

func okAck(body string) Ack {
	return Ack{StatusCode: http.StatusOK, Body: body}
}

func methodsWith(methods []Method, disabled []string) []Method {
	out := make([]Method, 0, len(methods))
	for _, m := range methods {
		m.Enabled = true
		for _, d := range disabled {
			if d == m.Code {
				m.Enabled = false
			}
		}
		out = append(out, m)
	}
	return out
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction records a provider reported money movement. Refunds carry a
// negative amount and reference the payment they reverse.
type Transaction struct {
	ID uint64

	TransactionID string
	OrderID       string
	Type          TransactionType
	Provider      string

	Amount decimal.Decimal
	Fee    decimal.Decimal
	Status TransactionStatus

	ProviderTxnID  *string
	ReferenceTxnID *string
	RawPayload     *string

	ProcessedAt *time.Time
	CreatedAt   time.Time
}

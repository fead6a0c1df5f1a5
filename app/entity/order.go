package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusExpired    OrderStatus = "expired"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// OpenOrderStatuses are the states a provider outcome may still move.
var OpenOrderStatuses = []OrderStatus{OrderStatusPending, OrderStatusProcessing}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusProcessing,
		OrderStatusCompleted,
		OrderStatusFailed,
		OrderStatusCancelled,
		OrderStatusExpired,
	},
	OrderStatusProcessing: {
		OrderStatusCompleted,
		OrderStatusFailed,
		OrderStatusCancelled,
		OrderStatusExpired,
	},
	OrderStatusCompleted: {OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusExpired, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether provider callbacks can no longer change the order.
// Completed is terminal here even though a refund may still follow it.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && s != OrderStatusPending && s != OrderStatusProcessing
}

// CanTransition is the single transition rule shared by every writer.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID uint64

	OrderID       string
	RequestID     string
	CallerService string
	UserID        *string

	PackageCode string
	Provider    string
	Method      string

	Amount         decimal.Decimal
	OriginalAmount decimal.Decimal
	DiscountCode   *string
	DiscountAmount decimal.Decimal
	Fee            decimal.Decimal
	Currency       string

	PaymentURL        *string
	ProviderReference *string
	InstructionsJSON  *string

	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Message       *string

	Status        OrderStatus
	FailureReason *string

	ExpiresAt time.Time
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether a still open order has outlived its expiry.
func (o *Order) Expired(now time.Time) bool {
	if o.Status.IsTerminal() {
		return false
	}
	return !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

package entity

import "time"

const (
	DispatchStatusPending int32 = 1
	DispatchStatusSuccess int32 = 10
	DispatchStatusFailed  int32 = 20
)

const (
	OrderEventStatusChanged = "order.status_changed"
	OrderEventSettled       = "order.settled"
	OrderEventRefunded      = "order.refunded"
)

type OrderEvent struct {
	ID uint64

	EventID   string
	OrderID   string
	EventType string

	OldStatus *OrderStatus
	NewStatus OrderStatus

	PayloadJSON string

	DispatchStatus   int32
	DispatchAttempts int32
	NextDispatchAt   *time.Time
	LastError        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

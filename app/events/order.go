package events

import (
	"encoding/json"
	"time"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

// OrderChanged is the JSON body published for every order transition. An
// event of type order.settled is the OrderSettled notification.
type OrderChanged struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id,omitempty"`
	PackageCode   string    `json:"package"`
	Provider      string    `json:"provider"`
	Method        string    `json:"method"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	ProviderTxnID string    `json:"provider_transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewOrderEvent builds the outbox row for order moving from oldStatus to
// newStatus. txn may be nil.
func NewOrderEvent(
	eventID string,
	eventType string,
	order *entity.Order,
	oldStatus entity.OrderStatus,
	newStatus entity.OrderStatus,
	txn *entity.Transaction,
	reason string,
	now time.Time,
) (*entity.OrderEvent, error) {
	body := OrderChanged{
		EventID:     eventID,
		EventType:   eventType,
		OrderID:     order.OrderID,
		PackageCode: order.PackageCode,
		Provider:    order.Provider,
		Method:      order.Method,
		Amount:      order.Amount.StringFixed(2),
		Currency:    order.Currency,
		OldStatus:   string(oldStatus),
		NewStatus:   string(newStatus),
		Reason:      reason,
		OccurredAt:  now,
	}
	if order.UserID != nil {
		body.UserID = *order.UserID
	}
	if txn != nil {
		body.TransactionID = txn.TransactionID
		if txn.ProviderTxnID != nil {
			body.ProviderTxnID = *txn.ProviderTxnID
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	old := oldStatus
	return &entity.OrderEvent{
		EventID:        eventID,
		OrderID:        order.OrderID,
		EventType:      eventType,
		OldStatus:      &old,
		NewStatus:      newStatus,
		PayloadJSON:    string(payload),
		DispatchStatus: entity.DispatchStatusPending,
		NextDispatchAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

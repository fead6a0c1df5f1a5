package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/events"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
)

type transitionDetails struct {
	reason      string
	paidAt      *time.Time
	transaction *entity.Transaction
}

// transition moves order to `to` if it is still in the status it was loaded
// with. It reports false when the rule forbids the move or another writer
// got there first. On success order reflects the new state and the event is
// handed to the publisher.
func (s *PaymentService) transition(ctx context.Context, order *entity.Order, to entity.OrderStatus, details transitionDetails) (bool, error) {
	from := order.Status
	if !entity.CanTransition(from, to) {
		return false, nil
	}

	now := s.now()
	event, err := events.NewOrderEvent(uuid.NewString(), eventTypeFor(to), order, from, to, details.transaction, details.reason, now)
	if err != nil {
		return false, err
	}

	var reason *string
	if details.reason != "" && (to == entity.OrderStatusFailed || to == entity.OrderStatusCancelled || to == entity.OrderStatusExpired) {
		r := details.reason
		reason = &r
	}

	applied, err := s.orderRepo.Transition(ctx, &repository.Transition{
		OrderID:       order.OrderID,
		From:          []entity.OrderStatus{from},
		To:            to,
		FailureReason: reason,
		PaidAt:        details.paidAt,
		Transaction:   details.transaction,
		Event:         event,
		At:            now,
	})
	if err != nil || !applied {
		return false, err
	}

	order.Status = to
	order.UpdatedAt = now
	if reason != nil {
		order.FailureReason = reason
	}
	if details.paidAt != nil {
		order.PaidAt = details.paidAt
	}

	s.observer.ObserveTransition(order.Provider, string(to))
	s.publish(ctx, event)
	return true, nil
}

// publish tries to deliver event right away. Failures leave it pending for
// the dispatch job.
func (s *PaymentService) publish(ctx context.Context, event *entity.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_id", event.EventID).Warn("Order event publish deferred")
		return
	}
	s.markDispatched(ctx, event, s.now())
}

func (s *PaymentService) markDispatched(ctx context.Context, event *entity.OrderEvent, now time.Time) {
	event.DispatchStatus = entity.DispatchStatusSuccess
	event.DispatchAttempts++
	event.NextDispatchAt = nil
	event.LastError = nil
	event.UpdatedAt = now
	if err := s.eventRepo.UpdateDispatch(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_id", event.EventID).Warn("Failed to record event dispatch")
	}
}

func eventTypeFor(to entity.OrderStatus) string {
	switch to {
	case entity.OrderStatusCompleted, entity.OrderStatusFailed:
		return entity.OrderEventSettled
	case entity.OrderStatusRefunded:
		return entity.OrderEventRefunded
	default:
		return entity.OrderEventStatusChanged
	}
}

// checkPaidAmount rejects a completion for less than the order amount. A zero
// amount means the provider did not report one.
func checkPaidAmount(order *entity.Order, status provider.Status, paid decimal.Decimal) error {
	if status != provider.StatusCompleted || !paid.IsPositive() || !paid.LessThan(order.Amount) {
		return nil
	}
	return fmt.Errorf("%w: paid %s, expected %s", ErrInvalidRequest, paid.String(), order.Amount.StringFixed(2))
}

type providerOutcome struct {
	status        provider.Status
	providerTxnID string
	message       string
	paidAt        *time.Time
	raw           string
}

// applyOutcome settles an open order from a provider reported final status.
// Pending outcomes are left to the caller. It reports whether this call
// performed the settlement.
func (s *PaymentService) applyOutcome(ctx context.Context, order *entity.Order, outcome providerOutcome) (bool, error) {
	var to entity.OrderStatus
	var txnStatus entity.TransactionStatus
	switch outcome.status {
	case provider.StatusCompleted:
		to, txnStatus = entity.OrderStatusCompleted, entity.TransactionStatusCompleted
	case provider.StatusFailed:
		to, txnStatus = entity.OrderStatusFailed, entity.TransactionStatusFailed
	default:
		return false, nil
	}

	now := s.now()
	txn := &entity.Transaction{
		TransactionID: s.ids.transactionID(now),
		OrderID:       order.OrderID,
		Type:          entity.TransactionTypePayment,
		Provider:      order.Provider,
		Amount:        order.Amount,
		Fee:           order.Fee,
		Status:        txnStatus,
		ProviderTxnID: normalizeOptionalString(outcome.providerTxnID),
		RawPayload:    normalizeOptionalString(outcome.raw),
		ProcessedAt:   &now,
		CreatedAt:     now,
	}

	details := transitionDetails{transaction: txn}
	if to == entity.OrderStatusCompleted {
		paidAt := now
		if outcome.paidAt != nil {
			paidAt = outcome.paidAt.UTC()
		}
		details.paidAt = &paidAt
	} else {
		details.reason = truncate(outcome.message, 500)
		if details.reason == "" {
			details.reason = "payment failed at provider"
		}
	}

	return s.transition(ctx, order, to, details)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
)

// CallbackResult is the engine's verdict on one provider notification. Ack
// is the provider specific response to send back.
type CallbackResult struct {
	Provider string
	OrderID  string
	Outcome  entity.CallbackOutcome
	Status   entity.OrderStatus
	Ack      provider.Ack
}

// HandleCallback reconciles one provider notification. The order id in the
// payload is only trusted after the provider validated the payload, and all
// work for one order happens under its lock. Busy, rejected and failed
// outcomes come back with an error; duplicates are not errors. The result
// is non-nil whenever the provider is known.
func (s *PaymentService) HandleCallback(ctx context.Context, providerCode string, payload *provider.CallbackPayload) (*CallbackResult, error) {
	providerClient, err := s.providerReg.Get(providerCode)
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	result := &CallbackResult{Provider: providerClient.Code()}

	orderID, err := providerClient.ExtractOrderID(payload)
	if err != nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected, callbackError(err))
	}
	result.OrderID = orderID

	release, ok := s.locks.TryAcquire(orderID)
	if !ok {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackBusy, ErrOrderBusy)
	}
	defer release()

	validated, err := providerClient.ValidateCallback(ctx, payload)
	if err != nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected, callbackError(err))
	}
	if validated.OrderID != orderID {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected,
			fmt.Errorf("%w: order id changed during validation", ErrInvalidRequest))
	}

	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackFailed, err)
	}
	if order == nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected, ErrOrderNotFound)
	}
	result.Status = order.Status

	if order.Provider != providerClient.Code() {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected,
			fmt.Errorf("%w: order belongs to provider %s", ErrInvalidRequest, order.Provider))
	}
	if order.Status.IsTerminal() {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackDuplicate, nil)
	}
	if err := checkPaidAmount(order, validated.Status, validated.Amount); err != nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackRejected, err)
	}

	if validated.Status == provider.StatusPending {
		if order.Status == entity.OrderStatusPending {
			if _, err := s.transition(ctx, order, entity.OrderStatusProcessing, transitionDetails{reason: validated.Message}); err != nil {
				return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackFailed, err)
			}
		}
		result.Status = order.Status
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackAccepted, nil)
	}

	applied, err := s.applyOutcome(ctx, order, providerOutcome{
		status:        validated.Status,
		providerTxnID: validated.ProviderTxnID,
		message:       validated.Message,
		paidAt:        validated.PaidAt,
		raw:           fieldsJSON(payload),
	})
	if err != nil {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackFailed, err)
	}
	if !applied {
		return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackDuplicate, nil)
	}

	result.Status = order.Status
	return s.finishCallback(ctx, providerClient, payload, result, entity.CallbackAccepted, nil)
}

func (s *PaymentService) finishCallback(
	ctx context.Context,
	providerClient provider.Provider,
	payload *provider.CallbackPayload,
	result *CallbackResult,
	outcome entity.CallbackOutcome,
	cause error,
) (*CallbackResult, error) {
	result.Outcome = outcome

	message := ""
	if cause != nil {
		message = cause.Error()
	}
	result.Ack = providerClient.Acknowledge(ackOutcome(outcome), message)

	record := &entity.OrderCallback{
		Provider:    result.Provider,
		OrderID:     normalizeOptionalString(result.OrderID),
		PayloadJSON: fieldsJSON(payload),
		Outcome:     outcome,
		CreatedAt:   s.now(),
	}
	if message != "" {
		trimmed := truncate(message, 1024)
		record.Error = &trimmed
	}
	if err := s.callbackRepo.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("order_id", result.OrderID).Warn("Failed to store callback audit record")
	}

	s.observer.ObserveCallback(result.Provider, string(outcome))

	l := s.logger.WithFields(logrus.Fields{
		"provider": result.Provider,
		"order_id": result.OrderID,
		"outcome":  outcome,
	})
	switch outcome {
	case entity.CallbackRejected:
		l.WithError(cause).Warn("Provider callback rejected")
	case entity.CallbackFailed:
		l.WithError(cause).Error("Provider callback failed")
	case entity.CallbackAccepted:
		l.WithField("status", result.Status).Info("Provider callback accepted")
	default:
		l.Debug("Provider callback not applied")
	}

	return result, cause
}

func callbackError(err error) error {
	if errors.Is(err, provider.ErrAuthenticity) {
		return fmt.Errorf("%w: %w", ErrAuthenticity, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

func ackOutcome(outcome entity.CallbackOutcome) provider.AckOutcome {
	switch outcome {
	case entity.CallbackAccepted:
		return provider.AckAccepted
	case entity.CallbackDuplicate:
		return provider.AckDuplicate
	case entity.CallbackBusy:
		return provider.AckBusy
	case entity.CallbackRejected:
		return provider.AckRejected
	default:
		return provider.AckFailed
	}
}

func fieldsJSON(payload *provider.CallbackPayload) string {
	if payload == nil {
		return "{}"
	}
	if len(payload.Fields) > 0 {
		if body, err := json.Marshal(payload.Fields); err == nil {
			return string(body)
		}
	}
	body, _ := json.Marshal(map[string]string{"raw": string(payload.Body)})
	return string(body)
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
)

const (
	defaultReconcileStaleAfter = 2 * time.Minute
	defaultEventRetryInterval  = time.Minute
	defaultEventMaxAttempts    = int32(10)
)

var errNoPublisher = errors.New("no event publisher configured")

// RunExpirePendingBatch expires open orders whose payment window has passed.
// Orders held by a callback or status request are left for the next run.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	now := s.now()
	items, err := s.orderRepo.ListExpiredOpen(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil || order.Status.IsTerminal() {
			continue
		}
		release, ok := s.locks.TryAcquire(order.OrderID)
		if !ok {
			continue
		}
		_, err := s.transition(ctx, order, entity.OrderStatusExpired, transitionDetails{reason: "payment window expired"})
		release()
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunReconcileBatch polls providers for open orders that have not changed
// for a while, through the same path as GetStatus.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	staleAfter := s.ordersCfg.ReconcileStaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultReconcileStaleAfter
	}
	items, err := s.orderRepo.ListForReconcile(ctx, s.now().Add(-staleAfter), s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}
		if _, err := s.GetStatus(ctx, order.OrderID); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunDispatchEventsBatch publishes outbox events that are due.
func (s *PaymentService) RunDispatchEventsBatch(ctx context.Context) error {
	if s.publisher == nil {
		return errNoPublisher
	}

	now := s.now()
	items, err := s.eventRepo.ListDue(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, event := range items {
		if event == nil {
			continue
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			firstErr = keepFirstErr(firstErr, s.recordDispatchFailure(ctx, event, now, err))
			continue
		}
		s.markDispatched(ctx, event, now)
	}

	return firstErr
}

func (s *PaymentService) recordDispatchFailure(ctx context.Context, event *entity.OrderEvent, now time.Time, dispatchErr error) error {
	event.DispatchAttempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	event.LastError = &trimmed

	maxAttempts := s.ordersCfg.EventMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultEventMaxAttempts
	}

	if event.DispatchAttempts >= maxAttempts {
		event.DispatchStatus = entity.DispatchStatusFailed
		event.NextDispatchAt = nil
	} else {
		retryInterval := s.ordersCfg.EventRetryInterval
		if retryInterval <= 0 {
			retryInterval = defaultEventRetryInterval
		}
		next := now.Add(retryInterval * time.Duration(event.DispatchAttempts))
		event.DispatchStatus = entity.DispatchStatusPending
		event.NextDispatchAt = &next
	}
	event.UpdatedAt = now

	if err := s.eventRepo.UpdateDispatch(ctx, event); err != nil {
		return err
	}
	return dispatchErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

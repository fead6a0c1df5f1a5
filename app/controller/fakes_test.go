package controller

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/lock"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

type controllerStore struct {
	mu           sync.Mutex
	orders       map[string]*entity.Order
	transactions []*entity.Transaction
	callbacks    []*entity.OrderCallback
	discounts    map[string]*entity.DiscountCode
	listErr      error
}

func newControllerStore() *controllerStore {
	return &controllerStore{
		orders:    map[string]*entity.Order{},
		discounts: map[string]*entity.DiscountCode{},
	}
}

func (s *controllerStore) order(orderID string) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.orders[orderID]; ok {
		copyItem := *item
		return &copyItem
	}
	return nil
}

func (s *controllerStore) put(order *entity.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyItem := *order
	s.orders[order.OrderID] = &copyItem
}

type controllerOrderRepo struct{ *controllerStore }

func (r controllerOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.orders {
		if item.CallerService == order.CallerService && item.RequestID == order.RequestID {
			return repository.ErrOrderAlreadyExists
		}
	}
	copyItem := *order
	r.orders[order.OrderID] = &copyItem
	return nil
}

func (r controllerOrderRepo) UpdateCheckout(_ context.Context, order *entity.Order) error {
	r.put(order)
	return nil
}

func (r controllerOrderRepo) Transition(_ context.Context, t *repository.Transition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[t.OrderID]
	if !ok {
		return false, nil
	}
	for _, from := range t.From {
		if item.Status != from {
			continue
		}
		item.Status = t.To
		item.UpdatedAt = t.At
		if t.FailureReason != nil {
			item.FailureReason = t.FailureReason
		}
		if t.PaidAt != nil {
			item.PaidAt = t.PaidAt
		}
		if t.Transaction != nil {
			copyTxn := *t.Transaction
			r.transactions = append(r.transactions, &copyTxn)
		}
		return true, nil
	}
	return false, nil
}

func (r controllerOrderRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	return r.order(orderID), nil
}

func (r controllerOrderRepo) FindByCallerRequestID(_ context.Context, callerService, requestID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.orders {
		if item.CallerService == callerService && item.RequestID == requestID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r controllerOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	return items, nil
}

func (r controllerOrderRepo) ListExpiredOpen(context.Context, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

func (r controllerOrderRepo) ListForReconcile(context.Context, time.Time, int32) ([]*entity.Order, error) {
	return []*entity.Order{}, nil
}

func (r controllerOrderRepo) Stats(_ context.Context, filter repository.StatsFilter) (*repository.OrderStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repository.OrderStats{
		Filter:     filter,
		ByStatus:   map[string]repository.StatsBucket{},
		ByProvider: map[string]repository.StatsBucket{},
		ByMethod:   map[string]repository.StatsBucket{},
		ByPackage:  map[string]repository.StatsBucket{},
	}
	add := func(m map[string]repository.StatsBucket, key string, item *entity.Order) {
		bucket := m[key]
		bucket.Count++
		bucket.Total = bucket.Total.Add(item.Amount)
		if item.Status == entity.OrderStatusCompleted {
			bucket.Completed++
			bucket.Revenue = bucket.Revenue.Add(item.Amount)
		}
		m[key] = bucket
	}
	for _, item := range r.orders {
		if !filter.Includes(item.CreatedAt) {
			continue
		}
		add(stats.ByStatus, string(item.Status), item)
		add(stats.ByProvider, item.Provider, item)
		add(stats.ByMethod, item.Method, item)
		add(stats.ByPackage, item.PackageCode, item)
	}
	return stats, nil
}

type controllerTxnRepo struct{ *controllerStore }

func (r controllerTxnRepo) ListByOrderID(_ context.Context, orderID string) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Transaction, 0)
	for _, txn := range r.transactions {
		if txn.OrderID == orderID {
			copyTxn := *txn
			out = append(out, &copyTxn)
		}
	}
	return out, nil
}

func (r controllerTxnRepo) FindCompletedPayment(ctx context.Context, orderID string) (*entity.Transaction, error) {
	txns, _ := r.ListByOrderID(ctx, orderID)
	for _, txn := range txns {
		if txn.Type == entity.TransactionTypePayment && txn.Status == entity.TransactionStatusCompleted {
			return txn, nil
		}
	}
	return nil, nil
}

type controllerDiscountRepo struct{ *controllerStore }

func (r controllerDiscountRepo) FindByCode(_ context.Context, code string) (*entity.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.discounts[code]; ok {
		copyItem := *item
		return &copyItem, nil
	}
	return nil, nil
}

type controllerEventRepo struct{}

func (controllerEventRepo) ListDue(context.Context, time.Time, int32) ([]*entity.OrderEvent, error) {
	return []*entity.OrderEvent{}, nil
}

func (controllerEventRepo) UpdateDispatch(context.Context, *entity.OrderEvent) error {
	return nil
}

type controllerCallbackRepo struct{ *controllerStore }

func (r controllerCallbackRepo) Create(_ context.Context, callback *entity.OrderCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *callback
	r.callbacks = append(r.callbacks, &copyItem)
	return nil
}

const (
	testECPayMerchant = "2000132"
	testECPayHashKey  = "5294y06JbISpM5x9"
	testECPayHashIV   = "v77hoKGq4kWxNNIS"
)

func newControllerService(store *controllerStore) *service.PaymentService {
	ecpay := provider.NewECPayProvider(provider.ECPayConfig{
		MerchantID:    testECPayMerchant,
		HashKey:       testECPayHashKey,
		HashIV:        testECPayHashIV,
		BaseURL:       "http://127.0.0.1:1",
		ReturnURL:     "https://sponsor.example.com/webhooks/providers/ecpay",
		ClientBackURL: "https://sponsor.example.com/thanks",
	}, provider.NewTransport(provider.CodeECPay, provider.TransportConfig{Timeout: time.Second}, nil))

	return service.NewPaymentService(
		controllerOrderRepo{store},
		controllerTxnRepo{store},
		controllerDiscountRepo{store},
		controllerEventRepo{},
		controllerCallbackRepo{store},
		provider.NewRegistry(ecpay),
		lock.NewKeyed(100, time.Minute),
		config.OrdersConfig{Currency: "TWD", OrderTTL: 30 * time.Minute},
	)
}

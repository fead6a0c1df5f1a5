package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/lock"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore backs every fake repository so that transitions, transactions
// and events stay consistent with each other.
type memStore struct {
	mu           sync.Mutex
	orders       map[string]*entity.Order
	nextOrderID  uint64
	transactions []*entity.Transaction
	events       []*entity.OrderEvent
	callbacks    []*entity.OrderCallback
	discounts    map[string]*entity.DiscountCode
}

func newMemStore() *memStore {
	return &memStore{
		orders:    map[string]*entity.Order{},
		discounts: map[string]*entity.DiscountCode{},
	}
}

func (m *memStore) order(orderID string) *entity.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	copyItem := *item
	return &copyItem
}

func (m *memStore) put(order *entity.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrderID++
	copyItem := *order
	copyItem.ID = m.nextOrderID
	m.orders[order.OrderID] = &copyItem
}

func (m *memStore) transactionsFor(orderID string) []*entity.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Transaction, 0)
	for _, txn := range m.transactions {
		if txn.OrderID == orderID {
			copyItem := *txn
			out = append(out, &copyItem)
		}
	}
	return out
}

func (m *memStore) eventsFor(orderID string) []*entity.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.OrderEvent, 0)
	for _, event := range m.events {
		if event.OrderID == orderID {
			copyItem := *event
			out = append(out, &copyItem)
		}
	}
	return out
}

func (m *memStore) callbackOutcomes() []entity.CallbackOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.CallbackOutcome, 0, len(m.callbacks))
	for _, cb := range m.callbacks {
		out = append(out, cb.Outcome)
	}
	return out
}

type fakeOrderRepo struct{ *memStore }

func (r fakeOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.orders {
		if item.CallerService == order.CallerService && item.RequestID == order.RequestID {
			return repository.ErrOrderAlreadyExists
		}
	}
	if order.DiscountCode != nil {
		code, ok := r.discounts[*order.DiscountCode]
		if !ok || (code.UsageLimit > 0 && code.UsedCount >= code.UsageLimit) {
			return repository.ErrDiscountUnavailable
		}
		code.UsedCount++
	}
	r.nextOrderID++
	order.ID = r.nextOrderID
	copyItem := *order
	r.orders[order.OrderID] = &copyItem
	return nil
}

func (r fakeOrderRepo) UpdateCheckout(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[order.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.PaymentURL = order.PaymentURL
	item.ProviderReference = order.ProviderReference
	item.InstructionsJSON = order.InstructionsJSON
	item.Fee = order.Fee
	item.ExpiresAt = order.ExpiresAt
	item.UpdatedAt = order.UpdatedAt
	return nil
}

func (r fakeOrderRepo) Transition(_ context.Context, t *repository.Transition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.orders[t.OrderID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, from := range t.From {
		if item.Status == from {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}
	if txn := t.Transaction; txn != nil && txn.Type == entity.TransactionTypePayment && txn.Status == entity.TransactionStatusCompleted {
		for _, existing := range r.transactions {
			if existing.OrderID == txn.OrderID && existing.Type == entity.TransactionTypePayment && existing.Status == entity.TransactionStatusCompleted {
				return false, nil
			}
		}
	}

	item.Status = t.To
	item.UpdatedAt = t.At
	if t.FailureReason != nil {
		item.FailureReason = t.FailureReason
	}
	if t.PaidAt != nil {
		item.PaidAt = t.PaidAt
	}
	if t.ProviderReference != nil {
		item.ProviderReference = t.ProviderReference
	}
	if t.Transaction != nil {
		copyTxn := *t.Transaction
		copyTxn.ID = uint64(len(r.transactions) + 1)
		r.transactions = append(r.transactions, &copyTxn)
	}
	if t.Event != nil {
		t.Event.ID = uint64(len(r.events) + 1)
		copyEvent := *t.Event
		r.events = append(r.events, &copyEvent)
	}
	return true, nil
}

func (r fakeOrderRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	return r.order(orderID), nil
}

func (r fakeOrderRepo) FindByCallerRequestID(_ context.Context, callerService, requestID string) (*entity.Order, error) {
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

func (r fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if filter.Provider != "" && item.Provider != filter.Provider {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && (item.UserID == nil || *item.UserID != filter.UserID) {
			continue
		}
		if filter.Package != "" && item.PackageCode != filter.Package {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r fakeOrderRepo) openWhere(match func(*entity.Order) bool, limit int32) []*entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Order, 0)
	for _, item := range r.orders {
		if item.Status.IsTerminal() || !match(item) {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

func (r fakeOrderRepo) ListExpiredOpen(_ context.Context, now time.Time, limit int32) ([]*entity.Order, error) {
	return r.openWhere(func(o *entity.Order) bool { return !o.ExpiresAt.After(now) }, limit), nil
}

func (r fakeOrderRepo) ListForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	return r.openWhere(func(o *entity.Order) bool { return !o.UpdatedAt.After(before) }, limit), nil
}

func (r fakeOrderRepo) Stats(_ context.Context, filter repository.StatsFilter) (*repository.OrderStats, error) {
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

type fakeTransactionRepo struct{ *memStore }

func (r fakeTransactionRepo) ListByOrderID(_ context.Context, orderID string) ([]*entity.Transaction, error) {
	return r.transactionsFor(orderID), nil
}

func (r fakeTransactionRepo) FindCompletedPayment(_ context.Context, orderID string) (*entity.Transaction, error) {
	for _, txn := range r.transactionsFor(orderID) {
		if txn.Type == entity.TransactionTypePayment && txn.Status == entity.TransactionStatusCompleted {
			return txn, nil
		}
	}
	return nil, nil
}

type fakeDiscountRepo struct{ *memStore }

func (r fakeDiscountRepo) FindByCode(_ context.Context, code string) (*entity.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.discounts[code]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeEventRepo struct{ *memStore }

func (r fakeEventRepo) ListDue(_ context.Context, now time.Time, limit int32) ([]*entity.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.OrderEvent, 0)
	for _, event := range r.events {
		if event.DispatchStatus == entity.DispatchStatusPending && event.NextDispatchAt != nil && !event.NextDispatchAt.After(now) {
			copyItem := *event
			out = append(out, &copyItem)
		}
	}
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeEventRepo) UpdateDispatch(_ context.Context, event *entity.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.events {
		if item.ID == event.ID {
			item.DispatchStatus = event.DispatchStatus
			item.DispatchAttempts = event.DispatchAttempts
			item.NextDispatchAt = event.NextDispatchAt
			item.LastError = event.LastError
			item.UpdatedAt = event.UpdatedAt
			return nil
		}
	}
	return errors.New("event not found")
}

type fakeCallbackRepo struct{ *memStore }

func (r fakeCallbackRepo) Create(_ context.Context, callback *entity.OrderCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *callback
	r.callbacks = append(r.callbacks, &copyItem)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []*entity.OrderEvent
}

func (p *fakePublisher) Publish(_ context.Context, event *entity.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	copyItem := *event
	p.published = append(p.published, &copyItem)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// stubProvider signs nothing: a callback is authentic when its sig field is
// "ok". Status and amount come from the payload fields.
type stubProvider struct {
	mu sync.Mutex

	code    string
	methods []provider.Method

	createErr   error
	createOut   *provider.CreateOutput
	creates     int
	queryResult *provider.QueryResult
	queryErr    error
	queries     int
	cancels     int
	refund      *provider.OperationResult
	refunds     int

	// validateHook runs inside ValidateCallback while the order lock is held.
	validateHook func()
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		code: "stubpay",
		methods: []provider.Method{
			{
				Code:      "credit",
				Name:      "Card",
				FeeRate:   decimal.RequireFromString("0.028"),
				MinAmount: decimal.NewFromInt(1),
				MaxAmount: decimal.NewFromInt(200000),
				Enabled:   true,
			},
			{
				Code:      "atm",
				Name:      "ATM",
				FeeRate:   decimal.RequireFromString("0.01"),
				MinAmount: decimal.NewFromInt(100),
				MaxAmount: decimal.NewFromInt(50000),
				Enabled:   true,
			},
			{
				Code:      "cvs",
				Name:      "Convenience store",
				FeeRate:   decimal.RequireFromString("0.02"),
				MinAmount: decimal.NewFromInt(30),
				MaxAmount: decimal.NewFromInt(20000),
				Enabled:   false,
			},
		},
	}
}

func (p *stubProvider) Code() string              { return p.code }
func (p *stubProvider) Name() string              { return "Stub Pay" }
func (p *stubProvider) Methods() []provider.Method { return p.methods }

func (p *stubProvider) CreateOrder(_ context.Context, input *provider.CreateInput) (*provider.CreateOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.createOut != nil {
		return p.createOut, nil
	}
	return &provider.CreateOutput{
		PaymentURL:        "https://stub.example/pay",
		FormFields:        map[string]string{"order": input.OrderID},
		ProviderReference: "ref-" + input.OrderID,
		ExpiresAt:         input.ExpiresAt,
	}, nil
}

func (p *stubProvider) QueryStatus(_ context.Context, _ *provider.QueryInput) (*provider.QueryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.queryResult != nil {
		return p.queryResult, nil
	}
	return &provider.QueryResult{Status: provider.StatusPending}, nil
}

func (p *stubProvider) ExtractOrderID(payload *provider.CallbackPayload) (string, error) {
	orderID := payload.Fields["order_id"]
	if orderID == "" {
		return "", fmt.Errorf("%w: missing order_id", provider.ErrMalformedCallback)
	}
	return orderID, nil
}

func (p *stubProvider) ValidateCallback(_ context.Context, payload *provider.CallbackPayload) (*provider.CallbackResult, error) {
	if p.validateHook != nil {
		p.validateHook()
	}
	if payload.Fields["sig"] != "ok" {
		return nil, fmt.Errorf("%w: %w", provider.ErrAuthenticity, provider.ErrInvalidSignature)
	}
	amount, err := decimal.NewFromString(payload.Fields["amount"])
	if err != nil {
		return nil, fmt.Errorf("%w: amount", provider.ErrMalformedCallback)
	}
	return &provider.CallbackResult{
		OrderID:       payload.Fields["order_id"],
		Status:        provider.Status(payload.Fields["status"]),
		Amount:        amount,
		ProviderTxnID: payload.Fields["txn"],
		Message:       payload.Fields["message"],
	}, nil
}

func (p *stubProvider) Cancel(_ context.Context, _, _ string) (*provider.OperationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	return &provider.OperationResult{Status: provider.OperationSucceeded}, nil
}

func (p *stubProvider) Refund(_ context.Context, _ string, _ decimal.Decimal, _ string) (*provider.OperationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds++
	if p.refund != nil {
		return p.refund, nil
	}
	return &provider.OperationResult{Status: provider.OperationUnsupported, Message: "refund is not supported by this provider"}, nil
}

func (p *stubProvider) Acknowledge(outcome provider.AckOutcome, message string) provider.Ack {
	switch outcome {
	case provider.AckAccepted, provider.AckDuplicate:
		return provider.Ack{StatusCode: http.StatusOK, Body: "OK"}
	case provider.AckBusy:
		return provider.Ack{StatusCode: http.StatusConflict, Body: "BUSY"}
	case provider.AckRejected:
		return provider.Ack{StatusCode: http.StatusBadRequest, Body: "REJECTED " + message}
	default:
		return provider.Ack{StatusCode: http.StatusInternalServerError, Body: "ERROR"}
	}
}

type testEnv struct {
	store     *memStore
	clock     *testClock
	provider  *stubProvider
	publisher *fakePublisher
	locks     *lock.Keyed
	svc       *PaymentService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     newMemStore(),
		clock:     newTestClock(),
		provider:  newStubProvider(),
		publisher: &fakePublisher{},
		locks:     lock.NewKeyed(100, time.Minute),
	}
	env.store.discounts["SPONSOR10"] = &entity.DiscountCode{
		Code:        "SPONSOR10",
		Type:        entity.DiscountTypePercentage,
		Value:       decimal.NewFromInt(10),
		MinAmount:   decimal.NewFromInt(200),
		MaxDiscount: decimal.NewFromInt(50),
		UsageLimit:  1,
		Active:      true,
	}
	env.svc = NewPaymentService(
		fakeOrderRepo{env.store},
		fakeTransactionRepo{env.store},
		fakeDiscountRepo{env.store},
		fakeEventRepo{env.store},
		fakeCallbackRepo{env.store},
		provider.NewRegistry(env.provider),
		env.locks,
		config.OrdersConfig{
			Currency:            "TWD",
			OrderTTL:            30 * time.Minute,
			JobBatchSize:        50,
			ReconcileStaleAfter: time.Minute,
			EventMaxAttempts:    3,
			EventRetryInterval:  time.Minute,
		},
		WithClock(env.clock.Now),
		WithPublisher(env.publisher),
	)
	return env
}

// seedOrder stores an open order created by the stub provider.
func (env *testEnv) seedOrder(orderID string, status entity.OrderStatus) *entity.Order {
	now := env.clock.Now()
	order := &entity.Order{
		OrderID:        orderID,
		RequestID:      "req-" + orderID,
		CallerService:  "sponsor-web",
		PackageCode:    "vip",
		Provider:       env.provider.code,
		Method:         "credit",
		Amount:         decimal.NewFromInt(599),
		OriginalAmount: decimal.NewFromInt(599),
		DiscountAmount: decimal.Zero,
		Fee:            decimal.RequireFromString("16.77"),
		Currency:       "TWD",
		Status:         status,
		ExpiresAt:      now.Add(30 * time.Minute),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	env.store.put(order)
	return env.store.order(orderID)
}

func callbackPayload(orderID, status, amount, sig string) *provider.CallbackPayload {
	return &provider.CallbackPayload{
		ContentType: "application/x-www-form-urlencoded",
		Fields: map[string]string{
			"order_id": orderID,
			"status":   status,
			"amount":   amount,
			"sig":      sig,
			"txn":      "stub-" + status,
		},
	}
}

type createRequest struct {
	requestID     string
	callerService string
	userID        string
	pkg           string
	amount        string
	discountCode  string
	provider      string
	method        string
	message       string
}

func (r *createRequest) GetRequestId() string     { return r.requestID }
func (r *createRequest) GetCallerService() string { return r.callerService }
func (r *createRequest) GetUserId() string        { return r.userID }
func (r *createRequest) GetPackage() string       { return r.pkg }
func (r *createRequest) GetAmount() string        { return r.amount }
func (r *createRequest) GetDiscountCode() string  { return r.discountCode }
func (r *createRequest) GetProvider() string      { return r.provider }
func (r *createRequest) GetMethod() string        { return r.method }
func (r *createRequest) GetCustomerName() string  { return "Lin" }
func (r *createRequest) GetCustomerEmail() string { return "lin@example.com" }
func (r *createRequest) GetCustomerPhone() string { return "" }
func (r *createRequest) GetMessage() string       { return r.message }

type refundReq struct {
	orderID string
	amount  string
	reason  string
	execute bool
}

func (r *refundReq) GetOrderId() string { return r.orderID }
func (r *refundReq) GetAmount() string  { return r.amount }
func (r *refundReq) GetReason() string  { return r.reason }
func (r *refundReq) GetExecute() bool   { return r.execute }

type listReq struct {
	status   string
	provider string
}

func (r *listReq) GetUserId() string   { return "" }
func (r *listReq) GetProvider() string { return r.provider }
func (r *listReq) GetPackage() string  { return "" }
func (r *listReq) GetStatus() string   { return r.status }
func (r *listReq) GetLimit() int32     { return 0 }
func (r *listReq) GetOffset() int32    { return 0 }

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/factory"
	"github.com/vibast-solutions/ms-go-sponsorships/app/lock"
	"github.com/vibast-solutions/ms-go-sponsorships/app/pricing"
	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/app/repository"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

const (
	defaultListLimit = int32(100)
	defaultBatchSize = int32(100)
	defaultOrderTTL  = 30 * time.Minute
	defaultCurrency  = "TWD"
	idAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type createPaymentRequest interface {
	GetRequestId() string
	GetCallerService() string
	GetUserId() string
	GetPackage() string
	GetAmount() string
	GetDiscountCode() string
	GetProvider() string
	GetMethod() string
	GetCustomerName() string
	GetCustomerEmail() string
	GetCustomerPhone() string
	GetMessage() string
}

type listOrdersRequest interface {
	GetUserId() string
	GetProvider() string
	GetPackage() string
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

type statsRequest interface {
	GetFrom() string
	GetTo() string
}

type refundRequest interface {
	GetOrderId() string
	GetAmount() string
	GetReason() string
	GetExecute() bool
}

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	UpdateCheckout(ctx context.Context, order *entity.Order) error
	Transition(ctx context.Context, t *repository.Transition) (bool, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.Order, error)
	FindByCallerRequestID(ctx context.Context, callerService, requestID string) (*entity.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]*entity.Order, error)
	ListExpiredOpen(ctx context.Context, now time.Time, limit int32) ([]*entity.Order, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error)
	Stats(ctx context.Context, filter repository.StatsFilter) (*repository.OrderStats, error)
}

type transactionRepository interface {
	ListByOrderID(ctx context.Context, orderID string) ([]*entity.Transaction, error)
	FindCompletedPayment(ctx context.Context, orderID string) (*entity.Transaction, error)
}

type discountCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*entity.DiscountCode, error)
}

type orderEventRepository interface {
	ListDue(ctx context.Context, now time.Time, limit int32) ([]*entity.OrderEvent, error)
	UpdateDispatch(ctx context.Context, event *entity.OrderEvent) error
}

type orderCallbackRepository interface {
	Create(ctx context.Context, callback *entity.OrderCallback) error
}

// EventPublisher delivers order events to the outside world.
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.OrderEvent) error
}

type Observer interface {
	ObserveOrderCreated(provider, method, currency string, amount float64)
	ObserveTransition(provider, status string)
	ObserveCallback(provider, outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveOrderCreated(string, string, string, float64) {}
func (noopObserver) ObserveTransition(string, string)                    {}
func (noopObserver) ObserveCallback(string, string)                      {}

type Option func(*PaymentService)

func WithPublisher(publisher EventPublisher) Option {
	return func(s *PaymentService) { s.publisher = publisher }
}

func WithObserver(observer Observer) Option {
	return func(s *PaymentService) { s.observer = observer }
}

func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *PaymentService) { s.logger = logger }
}

// PaymentService owns order creation and every order status transition.
// Transitions for one order are serialized through locks; each one is a
// compare-and-set on the status the caller last observed.
type PaymentService struct {
	orderRepo    orderRepository
	txnRepo      transactionRepository
	discountRepo discountCodeRepository
	eventRepo    orderEventRepository
	callbackRepo orderCallbackRepository
	providerReg  *provider.Registry
	locks        *lock.Keyed
	ordersCfg    config.OrdersConfig

	publisher EventPublisher
	observer  Observer
	logger    logrus.FieldLogger
	now       func() time.Time
	ids       *idGenerator
}

func NewPaymentService(
	orderRepo orderRepository,
	txnRepo transactionRepository,
	discountRepo discountCodeRepository,
	eventRepo orderEventRepository,
	callbackRepo orderCallbackRepository,
	providerReg *provider.Registry,
	locks *lock.Keyed,
	ordersCfg config.OrdersConfig,
	opts ...Option,
) *PaymentService {
	s := &PaymentService{
		orderRepo:    orderRepo,
		txnRepo:      txnRepo,
		discountRepo: discountRepo,
		eventRepo:    eventRepo,
		callbackRepo: callbackRepo,
		providerReg:  providerReg,
		locks:        locks,
		ordersCfg:    ordersCfg,
		observer:     noopObserver{},
		logger:       factory.NewModuleLogger("order-service"),
		now:          func() time.Time { return time.Now().UTC() },
		ids:          newIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreatePaymentResult struct {
	Order    *entity.Order
	Checkout *entity.Checkout
}

func (s *PaymentService) CreatePayment(ctx context.Context, req createPaymentRequest) (*CreatePaymentResult, error) {
	requestID := strings.TrimSpace(req.GetRequestId())
	callerService := strings.TrimSpace(req.GetCallerService())
	if requestID == "" || callerService == "" {
		return nil, ErrInvalidRequest
	}

	existing, err := s.orderRepo.FindByCallerRequestID(ctx, callerService, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CreatePaymentResult{Order: existing, Checkout: existing.Checkout()}, nil
	}

	packageCode := strings.ToLower(strings.TrimSpace(req.GetPackage()))
	custom := decimal.Zero
	if raw := strings.TrimSpace(req.GetAmount()); raw != "" {
		custom, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: amount is not a number", ErrInvalidRequest)
		}
	}
	original, err := pricing.ResolveAmount(packageCode, custom)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	providerClient, err := s.providerReg.Get(strings.TrimSpace(req.GetProvider()))
	if err != nil {
		return nil, ErrProviderUnsupported
	}
	method, err := provider.FindMethod(providerClient, strings.TrimSpace(req.GetMethod()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	now := s.now()
	quote := &pricing.Quote{Original: original, Discount: decimal.Zero, Final: original}
	if code := pricing.NormalizeCode(req.GetDiscountCode()); code != "" {
		quote, err = s.quote(ctx, code, original, now)
		if err != nil {
			return nil, err
		}
	}

	if !method.Admits(quote.Final) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, provider.ErrAmountOutOfRange)
	}

	currency := s.currency()
	if method.Currency != "" {
		currency = method.Currency
	}

	order := &entity.Order{
		OrderID:        s.ids.orderID(now),
		RequestID:      requestID,
		CallerService:  callerService,
		UserID:         normalizeOptionalString(req.GetUserId()),
		PackageCode:    packageCode,
		Provider:       providerClient.Code(),
		Method:         method.Code,
		Amount:         quote.Final,
		OriginalAmount: quote.Original,
		DiscountAmount: quote.Discount,
		Fee:            pricing.Fee(quote.Final, method.FeeRate),
		Currency:       currency,
		CustomerName:   normalizeOptionalString(req.GetCustomerName()),
		CustomerEmail:  normalizeOptionalString(req.GetCustomerEmail()),
		CustomerPhone:  normalizeOptionalString(req.GetCustomerPhone()),
		Message:        normalizeOptionalString(truncate(strings.TrimSpace(req.GetMessage()), 500)),
		Status:         entity.OrderStatusPending,
		ExpiresAt:      now.Add(s.orderTTL()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if quote.Code != "" {
		code := quote.Code
		order.DiscountCode = &code
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		switch {
		case errors.Is(err, repository.ErrDiscountUnavailable):
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		case errors.Is(err, repository.ErrOrderAlreadyExists):
			existing, findErr := s.orderRepo.FindByCallerRequestID(ctx, callerService, requestID)
			if findErr != nil {
				return nil, findErr
			}
			if existing == nil {
				return nil, err
			}
			return &CreatePaymentResult{Order: existing, Checkout: existing.Checkout()}, nil
		default:
			return nil, err
		}
	}
	s.observer.ObserveOrderCreated(order.Provider, order.Method, order.Currency, order.Amount.InexactFloat64())

	output, err := providerClient.CreateOrder(ctx, &provider.CreateInput{
		OrderID:       order.OrderID,
		Method:        order.Method,
		Amount:        order.Amount,
		Currency:      order.Currency,
		ItemName:      s.itemName(packageCode),
		Note:          stringValue(order.Message),
		CreatedAt:     now,
		ExpiresAt:     order.ExpiresAt,
		CustomerName:  stringValue(order.CustomerName),
		CustomerEmail: stringValue(order.CustomerEmail),
		CustomerPhone: stringValue(order.CustomerPhone),
	})
	if err != nil {
		reason := truncate(err.Error(), 500)
		if _, terr := s.transition(ctx, order, entity.OrderStatusFailed, transitionDetails{reason: reason}); terr != nil {
			s.logger.WithError(terr).WithField("order_id", order.OrderID).Error("Failed to mark order failed after provider error")
		}
		return nil, mapProviderError(err)
	}

	checkout := checkoutFrom(output, order)
	if err := s.storeCheckout(ctx, order, output, checkout); err != nil {
		return nil, err
	}

	return &CreatePaymentResult{Order: order, Checkout: checkout}, nil
}

func (s *PaymentService) storeCheckout(ctx context.Context, order *entity.Order, output *provider.CreateOutput, checkout *entity.Checkout) error {
	body, err := json.Marshal(checkout)
	if err != nil {
		return err
	}
	instructions := string(body)

	order.InstructionsJSON = &instructions
	order.PaymentURL = normalizeOptionalString(output.PaymentURL)
	order.ProviderReference = normalizeOptionalString(output.ProviderReference)
	if output.TotalAmount.IsPositive() && output.TotalAmount.GreaterThan(order.Amount) {
		order.Fee = output.TotalAmount.Sub(order.Amount)
	}
	if output.ExpiresAt.After(order.ExpiresAt) {
		order.ExpiresAt = output.ExpiresAt
		checkout.ExpiresAt = output.ExpiresAt
	}
	order.UpdatedAt = s.now()

	return s.orderRepo.UpdateCheckout(ctx, order)
}

type OrderDetails struct {
	Order        *entity.Order
	Transactions []*entity.Transaction
}

func (s *PaymentService) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	return &OrderDetails{Order: order, Transactions: txns}, nil
}

// GetStatus returns the current view of an order. Open orders are expired
// when their window has passed and otherwise reconciled against the
// provider. When another request holds the order the stored view is
// returned as is.
func (s *PaymentService) GetStatus(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return order, nil
	}

	release, ok := s.locks.TryAcquire(order.OrderID)
	if !ok {
		return order, nil
	}
	defer release()

	order, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return order, nil
	}

	if order.Expired(s.now()) {
		if _, err := s.transition(ctx, order, entity.OrderStatusExpired, transitionDetails{reason: "payment window expired"}); err != nil {
			return nil, err
		}
		return s.loadOrder(ctx, orderID)
	}

	providerClient, err := s.providerReg.Get(order.Provider)
	if err != nil {
		return order, nil
	}
	result, err := providerClient.QueryStatus(ctx, &provider.QueryInput{
		OrderID:           order.OrderID,
		ProviderReference: stringValue(order.ProviderReference),
		Method:            order.Method,
		Amount:            order.Amount,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.OrderID).Debug("Provider status query failed")
		return order, nil
	}

	if err := checkPaidAmount(order, result.Status, result.Amount); err != nil {
		s.logger.WithError(err).WithField("order_id", order.OrderID).Warn("Provider status query reported an underpayment")
		return order, nil
	}

	raw, _ := json.Marshal(result)
	if _, err := s.applyOutcome(ctx, order, providerOutcome{
		status:        result.Status,
		providerTxnID: result.ProviderTxnID,
		message:       result.Message,
		raw:           string(raw),
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PaymentService) Cancel(ctx context.Context, orderID, reason string) (*entity.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, order.Status)
	}

	release, ok := s.locks.TryAcquire(order.OrderID)
	if !ok {
		return nil, ErrOrderBusy
	}
	defer release()

	order, err = s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidState, order.Status)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by request"
	}

	if providerClient, err := s.providerReg.Get(order.Provider); err == nil {
		result, err := providerClient.Cancel(ctx, order.OrderID, reason)
		l := s.logger.WithField("order_id", order.OrderID)
		switch {
		case err != nil:
			l.WithError(err).Warn("Provider cancel failed")
		case result.Status == provider.OperationFailed:
			l.WithField("message", result.Message).Warn("Provider refused cancel")
		}
	}

	applied, err := s.transition(ctx, order, entity.OrderStatusCancelled, transitionDetails{reason: truncate(reason, 500)})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidState)
	}
	return order, nil
}

// RecordRefund records a refund against a completed order. The provider is
// only asked to move money when the request says so.
func (s *PaymentService) RecordRefund(ctx context.Context, req refundRequest) (*OrderDetails, error) {
	order, err := s.loadOrder(ctx, req.GetOrderId())
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: only completed orders can be refunded", ErrInvalidState)
	}

	release, ok := s.locks.TryAcquire(order.OrderID)
	if !ok {
		return nil, ErrOrderBusy
	}
	defer release()

	payment, err := s.txnRepo.FindCompletedPayment(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: order has no completed payment", ErrInvalidState)
	}

	amount := payment.Amount
	if raw := strings.TrimSpace(req.GetAmount()); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: amount is not a number", ErrInvalidRequest)
		}
	}
	amount = amount.Round(pricing.MoneyPlaces)
	if !amount.IsPositive() || amount.GreaterThan(payment.Amount) {
		return nil, fmt.Errorf("%w: refund amount must be between 0 and %s", ErrInvalidRequest, payment.Amount.StringFixed(2))
	}

	reason := truncate(strings.TrimSpace(req.GetReason()), 500)
	var providerRef *string
	if req.GetExecute() {
		providerClient, err := s.providerReg.Get(order.Provider)
		if err != nil {
			return nil, ErrProviderUnsupported
		}
		result, err := providerClient.Refund(ctx, order.OrderID, amount, reason)
		if err != nil {
			return nil, mapProviderError(err)
		}
		switch result.Status {
		case provider.OperationUnsupported:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, result.Message)
		case provider.OperationFailed:
			return nil, fmt.Errorf("%w: %s", ErrProviderRejected, result.Message)
		}
		providerRef = normalizeOptionalString(result.Reference)
	}

	now := s.now()
	refund := &entity.Transaction{
		TransactionID:  s.ids.transactionID(now),
		OrderID:        order.OrderID,
		Type:           entity.TransactionTypeRefund,
		Provider:       order.Provider,
		Amount:         amount.Neg(),
		Fee:            decimal.Zero,
		Status:         entity.TransactionStatusCompleted,
		ProviderTxnID:  providerRef,
		ReferenceTxnID: &payment.TransactionID,
		ProcessedAt:    &now,
		CreatedAt:      now,
	}

	applied, err := s.transition(ctx, order, entity.OrderStatusRefunded, transitionDetails{
		reason:      reason,
		transaction: refund,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidState)
	}
	return s.GetOrder(ctx, order.OrderID)
}

func (s *PaymentService) ListOrders(ctx context.Context, req listOrdersRequest) ([]*entity.Order, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	status := entity.OrderStatus(strings.ToLower(strings.TrimSpace(req.GetStatus())))
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	return s.orderRepo.List(ctx, repository.OrderFilter{
		UserID:   strings.TrimSpace(req.GetUserId()),
		Provider: strings.TrimSpace(req.GetProvider()),
		Package:  strings.ToLower(strings.TrimSpace(req.GetPackage())),
		Status:   status,
		Limit:    limit,
		Offset:   req.GetOffset(),
	})
}

func (s *PaymentService) ListPackages() []pricing.Package {
	return pricing.Packages()
}

type MethodQuote struct {
	Provider     string
	ProviderName string
	Method       provider.Method
	Fee          decimal.Decimal
	Total        decimal.Decimal
}

// ListMethods returns the enabled methods that accept amount, in provider
// priority order. A zero amount lists every enabled method.
func (s *PaymentService) ListMethods(amount decimal.Decimal) []MethodQuote {
	out := make([]MethodQuote, 0)
	for _, p := range s.providerReg.All() {
		for _, m := range p.Methods() {
			if !m.Enabled {
				continue
			}
			if amount.IsPositive() && !m.Admits(amount) {
				continue
			}
			fee := pricing.Fee(amount, m.FeeRate)
			out = append(out, MethodQuote{
				Provider:     p.Code(),
				ProviderName: p.Name(),
				Method:       m,
				Fee:          fee,
				Total:        pricing.Total(amount, fee),
			})
		}
	}
	return out
}

func (s *PaymentService) QuoteDiscount(ctx context.Context, code string, amount decimal.Decimal) (*pricing.Quote, error) {
	code = pricing.NormalizeCode(code)
	if code == "" || !amount.IsPositive() {
		return nil, ErrInvalidRequest
	}
	return s.quote(ctx, code, amount.Round(pricing.MoneyPlaces), s.now())
}

// Statistics groups orders created in [from, to). A bound is either a date,
// taken as a whole UTC day, or an RFC 3339 timestamp.
func (s *PaymentService) Statistics(ctx context.Context, req statsRequest) (*repository.OrderStats, error) {
	from, err := parseStatsBound(req.GetFrom(), false)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q", ErrInvalidRequest, req.GetFrom())
	}
	to, err := parseStatsBound(req.GetTo(), true)
	if err != nil {
		return nil, fmt.Errorf("%w: to %q", ErrInvalidRequest, req.GetTo())
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, fmt.Errorf("%w: from must be before to", ErrInvalidRequest)
	}
	return s.orderRepo.Stats(ctx, repository.StatsFilter{From: from, To: to})
}

// parseStatsBound turns an upper date bound into the start of the next day
// so the whole day is included.
func parseStatsBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if day, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		if upper {
			day = day.AddDate(0, 0, 1)
		}
		return &day, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	return &at, nil
}

func (s *PaymentService) quote(ctx context.Context, code string, amount decimal.Decimal, now time.Time) (*pricing.Quote, error) {
	discountCode, err := s.discountRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.Apply(discountCode, amount, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return quote, nil
}

func (s *PaymentService) loadOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrInvalidRequest
	}
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *PaymentService) batchSize() int32 {
	if s.ordersCfg.JobBatchSize > 0 {
		return s.ordersCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *PaymentService) orderTTL() time.Duration {
	if s.ordersCfg.OrderTTL > 0 {
		return s.ordersCfg.OrderTTL
	}
	return defaultOrderTTL
}

func (s *PaymentService) currency() string {
	if s.ordersCfg.Currency != "" {
		return s.ordersCfg.Currency
	}
	return defaultCurrency
}

func (s *PaymentService) itemName(packageCode string) string {
	prefix := s.ordersCfg.ItemName
	if prefix == "" {
		prefix = "Sponsorship"
	}
	if pkg, err := pricing.PackageByCode(packageCode); err == nil {
		return prefix + " - " + pkg.Name
	}
	return prefix
}

func checkoutFrom(output *provider.CreateOutput, order *entity.Order) *entity.Checkout {
	checkout := &entity.Checkout{
		PaymentURL:            output.PaymentURL,
		FormFields:            output.FormFields,
		QRCode:                output.QRCode,
		Network:               output.Network,
		Address:               output.Address,
		RequiredConfirmations: output.RequiredConfirmations,
		Instructions:          output.Instructions,
		ExpiresAt:             order.ExpiresAt,
	}
	if output.TotalAmount.IsPositive() {
		checkout.TotalAmount = output.TotalAmount.String()
	}
	return checkout
}

func mapProviderError(err error) error {
	switch {
	case errors.Is(err, provider.ErrMethodNotSupported), errors.Is(err, provider.ErrAmountOutOfRange):
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	case errors.Is(err, provider.ErrProviderRejected):
		return fmt.Errorf("%w: %w", ErrProviderRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
}

// idGenerator produces order and transaction ids: a fixed prefix, the
// creation time and a random suffix.
type idGenerator struct {
	mu          sync.Mutex
	orderSuffix func() string
	txnSuffix   func() string
}

func newIDGenerator() *idGenerator {
	orderSuffix, err := nanoid.CustomASCII(idAlphabet, 6)
	if err != nil {
		panic(err)
	}
	txnSuffix, err := nanoid.CustomASCII(idAlphabet, 8)
	if err != nil {
		panic(err)
	}
	return &idGenerator{orderSuffix: orderSuffix, txnSuffix: txnSuffix}
}

// orderID is at most 20 characters, the longest merchant trade number the
// card gateway accepts.
func (g *idGenerator) orderID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "JY" + now.Format("060102150405") + g.orderSuffix()
}

func (g *idGenerator) transactionID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return "TXN" + now.Format("20060102150405") + g.txnSuffix()
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}

package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sponsorships/app/entity"
	"github.com/vibast-solutions/ms-go-sponsorships/app/types"
)

func newOrdersEcho(ctrl *OrderController) *echo.Echo {
	e := echo.New()
	e.GET("/health", ctrl.Health)
	e.POST("/orders", ctrl.CreatePayment)
	e.GET("/orders", ctrl.ListOrders)
	e.GET("/orders/:order_id", ctrl.GetOrder)
	e.POST("/orders/:order_id/cancel", ctrl.CancelOrder)
	e.POST("/orders/:order_id/refund", ctrl.RefundOrder)
	e.GET("/catalog/packages", ctrl.ListPackages)
	e.GET("/catalog/methods", ctrl.ListMethods)
	e.POST("/catalog/discounts/quote", ctrl.QuoteDiscount)
	e.GET("/stats", ctrl.Stats)
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"request_id":"req-1","caller_service":"site","package":"vip","provider":"ecpay","method":"credit_card","customer_email":"fan@example.com"}`

func createOrder(t *testing.T, e *echo.Echo) *types.CreatePaymentResponse {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/orders", createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp types.CreatePaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp
}

func TestHealth(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
	rec := doJSON(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePaymentSuccess(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))

	resp := createOrder(t, e)
	if resp.Order == nil || resp.Order.Status != string(entity.OrderStatusPending) {
		t.Fatalf("expected pending order, got %+v", resp.Order)
	}
	if resp.Order.Amount != "599.00" || resp.Order.Provider != "ecpay" {
		t.Fatalf("unexpected order %+v", resp.Order)
	}
	if resp.Checkout == nil || resp.Checkout.FormFields["CheckMacValue"] == "" {
		t.Fatalf("expected signed checkout form")
	}
	if resp.Checkout.FormFields["MerchantTradeNo"] != resp.Order.OrderId {
		t.Fatalf("checkout must reference the order")
	}

	again := createOrder(t, e)
	if again.Order.OrderId != resp.Order.OrderId {
		t.Fatalf("expected idempotent create, got %s and %s", resp.Order.OrderId, again.Order.OrderId)
	}
}

func TestCreatePaymentErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed json", body: `{"request_id":`, want: http.StatusBadRequest},
		{name: "missing provider", body: `{"request_id":"r","caller_service":"site","package":"vip","method":"credit_card"}`, want: http.StatusBadRequest},
		{name: "unknown package", body: `{"request_id":"r","caller_service":"site","package":"gold","provider":"ecpay","method":"credit_card"}`, want: http.StatusBadRequest},
		{name: "unknown provider", body: `{"request_id":"r","caller_service":"site","package":"vip","provider":"paypal","method":"credit_card"}`, want: http.StatusBadRequest},
		{name: "unknown method", body: `{"request_id":"r","caller_service":"site","package":"vip","provider":"ecpay","method":"bitcoin"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
			rec := doJSON(e, http.MethodPost, "/orders", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
	created := createOrder(t, e)

	rec := doJSON(e, http.MethodGet, "/orders/"+created.Order.OrderId, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var details types.OrderDetailsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if details.Order.OrderId != created.Order.OrderId || details.Checkout == nil {
		t.Fatalf("unexpected details %+v", details)
	}

	rec = doJSON(e, http.MethodGet, "/orders/JY404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelOrder(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
	created := createOrder(t, e)
	target := "/orders/" + created.Order.OrderId + "/cancel"

	rec := doJSON(e, http.MethodPost, target, `{"reason":"changed mind"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cancelled"`) {
		t.Fatalf("expected cancelled order, got %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, target, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for terminal order, got %d", rec.Code)
	}
}

func TestRefundOrderRequiresCompletedOrder(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
	created := createOrder(t, e)

	rec := doJSON(e, http.MethodPost, "/orders/"+created.Order.OrderId+"/refund", `{"reason":"duplicate"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/orders/"+created.Order.OrderId+"/refund", `{"amount":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	store := newControllerStore()
	e := newOrdersEcho(NewOrderController(newControllerService(store)))
	createOrder(t, e)

	rec := doJSON(e, http.MethodGet, "/orders?status=pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp types.ListOrdersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 {
		t.Fatalf("expected one order, got %d", len(resp.Orders))
	}

	if rec := doJSON(e, http.MethodGet, "/orders?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/orders?limit=501", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for large limit, got %d", rec.Code)
	}

	store.listErr = errors.New("db down")
	if rec := doJSON(e, http.MethodGet, "/orders", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))

	rec := doJSON(e, http.MethodGet, "/catalog/packages", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"vip"`) {
		t.Fatalf("unexpected packages response %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/catalog/methods?amount=100", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var methods types.ListMethodsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(methods.Methods) == 0 || methods.Methods[0].Provider != "ecpay" {
		t.Fatalf("expected ecpay methods, got %+v", methods.Methods)
	}

	if rec := doJSON(e, http.MethodGet, "/catalog/methods?amount=-5", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/catalog/discounts/quote", `{"code":"nope","amount":"500"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown code, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStats(t *testing.T) {
	e := newOrdersEcho(NewOrderController(newControllerService(newControllerStore())))
	createOrder(t, e)

	rec := doJSON(e, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats types.StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.ByStatus["pending"].Count != 1 || stats.ByStatus["pending"].Total != "599.00" {
		t.Fatalf("unexpected stats %+v", stats.ByStatus)
	}
}

func seedStatsOrder(store *controllerStore, orderID, method string, status entity.OrderStatus, amount int64, createdAt time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.orders[orderID] = &entity.Order{
		OrderID:     orderID,
		PackageCode: "vip",
		Provider:    "ecpay",
		Method:      method,
		Amount:      decimal.NewFromInt(amount),
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestStatsFiltersByCreationAndCountsCompletedRevenue(t *testing.T) {
	store := newControllerStore()
	seedStatsOrder(store, "JY1", "credit_card", entity.OrderStatusCompleted, 599, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	seedStatsOrder(store, "JY2", "credit_card", entity.OrderStatusFailed, 599, time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC))
	seedStatsOrder(store, "JY3", "atm", entity.OrderStatusCompleted, 1000, time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC))
	seedStatsOrder(store, "JY4", "atm", entity.OrderStatusExpired, 300, time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC))
	e := newOrdersEcho(NewOrderController(newControllerService(store)))

	decode := func(target string) types.StatsResponse {
		t.Helper()
		rec := doJSON(e, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d %s", target, rec.Code, rec.Body.String())
		}
		var stats types.StatsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return stats
	}

	all := decode("/stats")
	if all.Revenue != "1599.00" {
		t.Fatalf("expected completed-only revenue 1599.00, got %s", all.Revenue)
	}
	ecpay := all.ByProvider["ecpay"]
	if ecpay.Count != 4 || ecpay.Total != "2498.00" || ecpay.Completed != 2 || ecpay.Revenue != "1599.00" {
		t.Fatalf("unexpected provider bucket %+v", ecpay)
	}
	if atm := all.ByMethod["atm"]; atm.Revenue != "1000.00" || atm.Count != 2 {
		t.Fatalf("unexpected method bucket %+v", atm)
	}

	day := decode("/stats?from=2026-03-01&to=2026-03-01")
	if day.Revenue != "599.00" || day.ByPackage["vip"].Count != 2 {
		t.Fatalf("unexpected single day stats %+v", day)
	}
	if day.From != "2026-03-01T00:00:00Z" || day.To != "2026-03-02T00:00:00Z" {
		t.Fatalf("unexpected range %s - %s", day.From, day.To)
	}

	later := decode("/stats?from=2026-03-02T00:00:00Z")
	if later.Revenue != "1000.00" || later.ByStatus["completed"].Count != 1 || later.ByStatus["expired"].Count != 1 {
		t.Fatalf("unexpected stats after from %+v", later)
	}

	for _, target := range []string{"/stats?from=03/01/2026", "/stats?from=2026-03-05&to=2026-03-01"} {
		if rec := doJSON(e, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

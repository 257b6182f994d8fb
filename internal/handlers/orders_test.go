package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/idempotency"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories/memory"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []services.NotificationMessage
}

func (p *recordingPublisher) PublishNotification(_ context.Context, message services.NotificationMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return message.ID, nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.messages))
	for _, msg := range p.messages {
		kinds = append(kinds, msg.Kind)
	}
	return kinds
}

type orderAPI struct {
	router    http.Handler
	store     *memory.Store
	publisher *recordingPublisher
}

func newOrderAPI(t *testing.T) *orderAPI {
	t.Helper()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := memory.NewStore()
	store.SeedProduct(domain.ProductStock{
		ProductID: "p1",
		Name:      "Mono panel 400W",
		SKU:       "PV-400",
		Price:     decimal.RequireFromString("50.00"),
		Quantity:  10,
		Threshold: 5,
		UpdatedAt: now,
	})
	publisher := &recordingPublisher{}

	ledger, err := services.NewStockLedger(services.StockLedgerDeps{Products: store.Products(), Clock: clock})
	if err != nil {
		t.Fatalf("new stock ledger: %v", err)
	}
	coordinator, err := services.NewStockCoordinator(services.StockCoordinatorDeps{Ledger: ledger})
	if err != nil {
		t.Fatalf("new stock coordinator: %v", err)
	}
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        store.Orders(),
		Items:         store.OrderItems(),
		Counters:      store.Counters(),
		Stock:         coordinator,
		UnitOfWork:    store,
		Notifications: publisher,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	companies, err := services.NewCompanyService(services.CompanyServiceDeps{Notifications: publisher, Clock: clock})
	if err != nil {
		t.Fatalf("new company service: %v", err)
	}

	orderHandlers := NewOrderHandlers(orders,
		WithIdempotency(idempotency.Middleware(idempotency.NewMemoryStore())),
		WithQuoteRateLimit(2, time.Minute, clock),
	)
	router := NewRouter(
		WithMiddlewares(CallerMiddleware()),
		WithOrderRoutes(orderHandlers.Routes),
		WithProductRoutes(NewProductHandlers(ledger).Routes),
		WithAdminRoutes(orderHandlers.AdminRoutes, NewCompanyHandlers(companies).AdminRoutes),
	)
	return &orderAPI{router: router, store: store, publisher: publisher}
}

type requestOption func(*http.Request)

func asCustomer(id string) requestOption {
	return func(r *http.Request) { r.Header.Set(HeaderCustomerID, id) }
}

func asAdmin() requestOption {
	return func(r *http.Request) { r.Header.Set(HeaderRole, "admin") }
}

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) { r.Header.Set("Idempotency-Key", key) }
}

func (a *orderAPI) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *orderAPI) stockOf(t *testing.T, productID string) int {
	t.Helper()
	stock, err := a.store.Products().GetStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("get stock %s: %v", productID, err)
	}
	return stock.Quantity
}

func placeOrderBody(quantity int) map[string]any {
	return map[string]any{
		"customer_email": "ana@example.com",
		"customer_name":  "Ana Horvat",
		"payment_method": "bank_transfer",
		"items": []map[string]any{
			{"product_id": "p1", "product_name": "Mono panel 400W", "quantity": quantity, "unit_price": "50.00"},
			{"product_name": "Installation", "quantity": 1, "unit_price": "100.00"},
		},
	}
}

func decodeOrder(t *testing.T, rr *httptest.ResponseRecorder) orderPayload {
	t.Helper()
	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode order response: %v (body=%s)", err, rr.Body.String())
	}
	return resp.Order
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	code, _ := body["error"].(string)
	return code
}

func TestOrderHandlers_CreateOrderTakesStock(t *testing.T) {
	api := newOrderAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(2), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	order := decodeOrder(t, rr)
	if order.CustomerID != "cust-1" {
		t.Fatalf("expected caller customer id, got %q", order.CustomerID)
	}
	if order.Status != string(domain.OrderStatusPending) {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if !order.Subtotal.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("expected subtotal 200, got %s", order.Subtotal)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected two items, got %d", len(order.Items))
	}
	if order.Items[1].ProductID != nil {
		t.Fatalf("expected custom item without product id, got %v", *order.Items[1].ProductID)
	}
	if got := rr.Header().Get("Location"); got != "/api/v1/orders/"+order.ID {
		t.Fatalf("unexpected location header %q", got)
	}
	if got := api.stockOf(t, "p1"); got != 8 {
		t.Fatalf("expected stock 8 after order, got %d", got)
	}
	if kinds := api.publisher.kinds(); len(kinds) != 1 || kinds[0] != services.NotificationOrderConfirmation {
		t.Fatalf("expected one confirmation notification, got %v", kinds)
	}
}

func TestOrderHandlers_CreateOrderReplaysIdempotentRequest(t *testing.T) {
	api := newOrderAPI(t)

	first := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(2), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(2), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if decodeOrder(t, first).ID != decodeOrder(t, second).ID {
		t.Fatalf("expected replay to return the same order")
	}
	if got := api.stockOf(t, "p1"); got != 8 {
		t.Fatalf("expected stock taken once, got %d", got)
	}
}

func TestOrderHandlers_CreateOrderRequiresIdentity(t *testing.T) {
	api := newOrderAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(1), withIdempotencyKey("k-anon"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := api.stockOf(t, "p1"); got != 10 {
		t.Fatalf("expected untouched stock, got %d", got)
	}
}

func TestOrderHandlers_CreateOrderInsufficientStock(t *testing.T) {
	api := newOrderAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(11), asCustomer("cust-1"), withIdempotencyKey("k-big"))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	if code := decodeErrorCode(t, rr); code != "insufficient_stock" {
		t.Fatalf("expected insufficient_stock, got %s", code)
	}
	if got := api.stockOf(t, "p1"); got != 10 {
		t.Fatalf("expected untouched stock, got %d", got)
	}
	if kinds := api.publisher.kinds(); len(kinds) != 0 {
		t.Fatalf("expected no notifications, got %v", kinds)
	}
}

func TestOrderHandlers_CreateOrderUnknownProduct(t *testing.T) {
	api := newOrderAPI(t)

	body := map[string]any{
		"customer_email": "ana@example.com",
		"items": []map[string]any{
			{"product_id": "ghost", "product_name": "Ghost", "quantity": 1, "unit_price": "1.00"},
		},
	}
	rr := api.do(t, http.MethodPost, "/api/v1/orders", body, asCustomer("cust-1"), withIdempotencyKey("k-ghost"))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrderHandlers_CreateOrderRejectsInvalidBody(t *testing.T) {
	api := newOrderAPI(t)

	body := placeOrderBody(1)
	body["unexpected"] = true
	rr := api.do(t, http.MethodPost, "/api/v1/orders", body, asCustomer("cust-1"), withIdempotencyKey("k-bad"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	body = placeOrderBody(1)
	body["customer_email"] = ""
	rr = api.do(t, http.MethodPost, "/api/v1/orders", body, asCustomer("cust-1"), withIdempotencyKey("k-bad-2"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", rr.Code)
	}
}

func TestOrderHandlers_CancelRestocks(t *testing.T) {
	api := newOrderAPI(t)

	created := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(3), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.Code)
	}
	order := decodeOrder(t, created)
	if got := api.stockOf(t, "p1"); got != 7 {
		t.Fatalf("expected stock 7, got %d", got)
	}

	rr := api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+":cancel", map[string]any{"reason": "changed mind"}, asCustomer("cust-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp statusChangePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.Status != string(domain.OrderStatusCancelled) {
		t.Fatalf("expected cancelled, got %s", resp.Order.Status)
	}
	if resp.PreviousStatus != string(domain.OrderStatusPending) {
		t.Fatalf("expected previous pending, got %s", resp.PreviousStatus)
	}
	if resp.RestockFailed {
		t.Fatalf("expected restock to succeed")
	}
	if got := api.stockOf(t, "p1"); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}

	again := api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+":cancel", nil, asCustomer("cust-1"))
	if again.Code != http.StatusOK {
		t.Fatalf("expected idempotent cancel, got %d", again.Code)
	}
	if got := api.stockOf(t, "p1"); got != 10 {
		t.Fatalf("expected no double restock, got %d", got)
	}
}

func TestOrderHandlers_OrdersHiddenFromOtherCustomers(t *testing.T) {
	api := newOrderAPI(t)

	created := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(1), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	order := decodeOrder(t, created)

	rr := api.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, asCustomer("cust-2"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order, got %d", rr.Code)
	}
	rr = api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+":cancel", nil, asCustomer("cust-2"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 cancelling foreign order, got %d", rr.Code)
	}
	if got := api.stockOf(t, "p1"); got != 9 {
		t.Fatalf("expected stock untouched by foreign cancel, got %d", got)
	}

	rr = api.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, asCustomer("cust-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected owner to read order, got %d", rr.Code)
	}
	rr = api.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, asAdmin())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected admin to read order, got %d", rr.Code)
	}
}

func TestOrderHandlers_ListOrdersScopedToCaller(t *testing.T) {
	api := newOrderAPI(t)

	api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(1), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(1), asCustomer("cust-2"), withIdempotencyKey("k-2"))

	rr := api.do(t, http.MethodGet, "/api/v1/orders?customer_id=cust-2", nil, asCustomer("cust-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected only the caller's order, got %d", len(list.Items))
	}

	rr = api.do(t, http.MethodGet, "/api/v1/orders?status=pending,cancelled", nil, asAdmin())
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected admin to see both orders, got %d", len(list.Items))
	}

	rr = api.do(t, http.MethodGet, "/api/v1/orders?page_size=abc", nil, asAdmin())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page size, got %d", rr.Code)
	}
}

func TestOrderHandlers_AdminOnlyRoutes(t *testing.T) {
	api := newOrderAPI(t)

	created := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(1), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	order := decodeOrder(t, created)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "transition", method: http.MethodPost, path: "/api/v1/orders/" + order.ID + ":transition", body: map[string]any{"status": "confirmed"}},
		{name: "payment", method: http.MethodPost, path: "/api/v1/orders/" + order.ID + "/payment-status", body: map[string]any{"payment_status": "paid"}},
		{name: "shipping", method: http.MethodPost, path: "/api/v1/orders/" + order.ID + "/shipping-status", body: map[string]any{"shipping_status": "shipped"}},
		{name: "delete", method: http.MethodDelete, path: "/api/v1/admin/orders/" + order.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := api.do(t, tc.method, tc.path, tc.body, asCustomer("cust-1"))
			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rr.Code)
			}
		})
	}
}

func TestOrderHandlers_AdminTransitions(t *testing.T) {
	api := newOrderAPI(t)

	created := api.do(t, http.MethodPost, "/api/v1/orders", placeOrderBody(2), asCustomer("cust-1"), withIdempotencyKey("k-1"))
	order := decodeOrder(t, created)

	rr := api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+":transition", map[string]any{"status": "shipped"}, asAdmin())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending to shipped, got %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+":transition", map[string]any{"status": "confirmed", "expected_status": "pending"}, asAdmin())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 confirming, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/payment-status", map[string]any{"payment_status": "paid"}, asAdmin())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 marking paid, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeOrder(t, rr); got.PaymentStatus != string(domain.PaymentStatusPaid) {
		t.Fatalf("expected paid, got %s", got.PaymentStatus)
	}

	rr = api.do(t, http.MethodDelete, "/api/v1/admin/orders/"+order.ID, nil, asAdmin())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = api.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, nil, asAdmin())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected deleted order to be gone, got %d", rr.Code)
	}
	if got := api.stockOf(t, "p1"); got != 8 {
		t.Fatalf("expected delete to leave stock alone, got %d", got)
	}
}

func TestOrderHandlers_QuoteIsRateLimited(t *testing.T) {
	api := newOrderAPI(t)

	body := map[string]any{
		"items": []map[string]any{
			{"product_id": "p1", "product_name": "Mono panel 400W", "quantity": 2, "unit_price": "50.00", "discount_percentage": "10"},
		},
		"shipping_cost": "15.00",
	}
	rr := api.do(t, http.MethodPost, "/api/v1/orders:quote", body, asCustomer("cust-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var quote quotePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if !quote.Subtotal.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected subtotal 100, got %s", quote.Subtotal)
	}
	if !quote.Discount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected discount 10, got %s", quote.Discount)
	}
	if got := api.stockOf(t, "p1"); got != 10 {
		t.Fatalf("expected quote to leave stock alone, got %d", got)
	}

	api.do(t, http.MethodPost, "/api/v1/orders:quote", body, asCustomer("cust-1"))
	rr = api.do(t, http.MethodPost, "/api/v1/orders:quote", body, asCustomer("cust-1"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestProductHandlers_GetStock(t *testing.T) {
	api := newOrderAPI(t)

	rr := api.do(t, http.MethodGet, "/api/v1/products/p1/stock", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var stock stockPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &stock); err != nil {
		t.Fatalf("decode stock: %v", err)
	}
	if stock.StockQuantity != 10 || stock.StockStatus != string(domain.StockStatusInStock) {
		t.Fatalf("unexpected stock payload %+v", stock)
	}

	rr = api.do(t, http.MethodGet, "/api/v1/products/ghost/stock", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rr.Code)
	}
}

func TestCompanyHandlers_NotifyApproval(t *testing.T) {
	api := newOrderAPI(t)

	body := map[string]any{
		"name":          "Sunny d.o.o.",
		"contact_name":  "Iva",
		"contact_email": "iva@sunny.example",
		"approved":      true,
	}
	rr := api.do(t, http.MethodPost, "/api/v1/admin/companies/c-1:notify-approval", body, asCustomer("cust-1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shopper, got %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/api/v1/admin/companies/c-1:notify-approval", body, asAdmin())
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if kinds := api.publisher.kinds(); len(kinds) != 1 || kinds[0] != services.NotificationCompanyApproval {
		t.Fatalf("expected company approval notification, got %v", kinds)
	}

	body["approved"] = false
	rr = api.do(t, http.MethodPost, "/api/v1/admin/companies/c-1:notify-approval", body, asAdmin())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unapproved company, got %d", rr.Code)
	}
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/pagination"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/requestctx"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	quoteRateLimit       = 60
	quoteRateWindow      = time.Minute
)

// OrderHandlers exposes order placement and lifecycle endpoints.
type OrderHandlers struct {
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
	quoteLimit  rateLimiter
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithIdempotency guards order creation with the supplied middleware.
func WithIdempotency(mw func(http.Handler) http.Handler) OrderHandlersOption {
	return func(h *OrderHandlers) { h.idempotency = mw }
}

// WithQuoteRateLimit overrides the per-caller quote budget.
func WithQuoteRateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlersOption {
	return func(h *OrderHandlers) { h.quoteLimit = newWindowLimiter(limit, window, clock) }
}

// NewOrderHandlers constructs OrderHandlers.
func NewOrderHandlers(orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		orders:     orders,
		quoteLimit: newWindowLimiter(quoteRateLimit, quoteRateWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints on the API root so that collection-level custom
// methods such as /orders:quote resolve.
func (h *OrderHandlers) Routes(r chi.Router) {
	create := http.Handler(http.HandlerFunc(h.createOrder))
	if h.idempotency != nil {
		create = h.idempotency(create)
	}
	r.Method(http.MethodPost, "/orders", create)
	r.With(rateLimitMiddleware(h.quoteLimit, quoteRateWindow)).Post("/orders:quote", h.quoteOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}:cancel", h.cancelOrder)
	r.Post("/orders/{orderID}:confirm-purchase", h.confirmPurchase)

	r.Group(func(admin chi.Router) {
		admin.Use(RequireAdmin)
		admin.Post("/orders/{orderID}:transition", h.transitionOrder)
		admin.Post("/orders/{orderID}/payment-status", h.updatePaymentStatus)
		admin.Post("/orders/{orderID}/shipping-status", h.updateShippingStatus)
	})
}

// AdminRoutes registers administrative order endpoints under /admin.
func (h *OrderHandlers) AdminRoutes(r chi.Router) {
	r.Delete("/orders/{orderID}", h.deleteOrder)
}

type createOrderRequest struct {
	CustomerID              string           `json:"customer_id"`
	CustomerEmail           string           `json:"customer_email"`
	CustomerName            string           `json:"customer_name"`
	CustomerPhone           string           `json:"customer_phone"`
	CompanyID               string           `json:"company_id"`
	CompanyName             string           `json:"company_name"`
	IsB2B                   bool             `json:"is_b2b"`
	Currency                string           `json:"currency"`
	PaymentMethod           string           `json:"payment_method"`
	Items                   []cartItemInput  `json:"items"`
	OrderDiscountPercentage *decimal.Decimal `json:"order_discount_percentage"`
	ShippingCost            decimal.Decimal  `json:"shipping_cost"`
	TaxAmount               *decimal.Decimal `json:"tax_amount"`
	TaxRatePercent          *decimal.Decimal `json:"tax_rate_percent"`
	ShippingAddress         *addressPayload  `json:"shipping_address"`
	BillingAddress          *addressPayload  `json:"billing_address"`
	Notes                   string           `json:"notes"`
	Metadata                map[string]any   `json:"metadata"`
}

type cartItemInput struct {
	ProductID          string           `json:"product_id"`
	ProductName        string           `json:"product_name"`
	ProductSKU         string           `json:"product_sku"`
	Quantity           int              `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

type quoteOrderRequest struct {
	IsB2B                   bool             `json:"is_b2b"`
	Items                   []cartItemInput  `json:"items"`
	OrderDiscountPercentage *decimal.Decimal `json:"order_discount_percentage"`
	ShippingCost            decimal.Decimal  `json:"shipping_cost"`
	TaxAmount               *decimal.Decimal `json:"tax_amount"`
	TaxRatePercent          *decimal.Decimal `json:"tax_rate_percent"`
}

type transitionRequest struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status"`
	Reason         string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type shippingStatusRequest struct {
	ShippingStatus string `json:"shipping_status"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := callerFrom(r)

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	customerID := caller.CustomerID
	if caller.Admin && strings.TrimSpace(req.CustomerID) != "" {
		customerID = strings.TrimSpace(req.CustomerID)
	}
	if customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identity required", http.StatusUnauthorized))
		return
	}
	companyID := strings.TrimSpace(req.CompanyID)
	if companyID == "" {
		companyID = caller.CompanyID
	}

	result, err := h.orders.CreateOrderWithStockManagement(ctx, services.CreateOrderCommand{
		CustomerID:              customerID,
		CustomerEmail:           req.CustomerEmail,
		CustomerName:            req.CustomerName,
		CustomerPhone:           req.CustomerPhone,
		CompanyID:               companyID,
		CompanyName:             req.CompanyName,
		IsB2B:                   req.IsB2B,
		Currency:                req.Currency,
		PaymentMethod:           req.PaymentMethod,
		Items:                   toCartItems(req.Items),
		OrderDiscountPercentage: req.OrderDiscountPercentage,
		ShippingCost:            req.ShippingCost,
		TaxAmount:               req.TaxAmount,
		TaxRatePercent:          req.TaxRatePercent,
		ShippingAddress:         req.ShippingAddress.toDomain(),
		BillingAddress:          req.BillingAddress.toDomain(),
		Notes:                   req.Notes,
		Metadata:                req.Metadata,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+result.Order.ID)
	httpx.WriteJSON(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(result.Order)})
}

func (h *OrderHandlers) quoteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req quoteOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	breakdown, err := h.orders.QuoteOrder(ctx, services.QuoteOrderCommand{
		IsB2B:                   req.IsB2B,
		Items:                   toCartItems(req.Items),
		OrderDiscountPercentage: req.OrderDiscountPercentage,
		ShippingCost:            req.ShippingCost,
		TaxAmount:               req.TaxAmount,
		TaxRatePercent:          req.TaxRatePercent,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildQuotePayload(breakdown))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := callerFrom(r)
	query := r.URL.Query()

	page, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		CustomerID: strings.TrimSpace(query.Get("customer_id")),
		CompanyID:  strings.TrimSpace(query.Get("company_id")),
		Pagination: services.Pagination{
			PageSize:  page.PageSize,
			PageToken: page.PageToken,
		},
	}
	if !caller.Admin {
		if caller.CustomerID == "" {
			httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identity required", http.StatusUnauthorized))
			return
		}
		filter.CustomerID = caller.CustomerID
		filter.CompanyID = ""
	}
	for _, raw := range splitFilterValues(query["status"]) {
		filter.Status = append(filter.Status, services.OrderStatus(strings.ToLower(raw)))
	}

	result, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(result.Items))
	for _, order := range result.Items {
		items = append(items, buildOrderSummary(order))
	}
	httpx.WriteJSON(w, http.StatusOK, orderListResponse{Items: items, NextPageToken: result.NextPageToken})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			writeDecodeError(ctx, w, err)
			return
		}
	}
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}

	result, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID: order.ID,
		Reason:  req.Reason,
		ActorID: actorID(callerFrom(r)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildStatusChangePayload(result))
}

func (h *OrderHandlers) confirmPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, ok := h.loadOwnedOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.orders.ConfirmPurchase(ctx, order.ID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(updated)})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	cmd := services.OrderStatusCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: services.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Reason:       req.Reason,
		ActorID:      actorID(callerFrom(r)),
	}
	if raw := strings.TrimSpace(req.ExpectedStatus); raw != "" {
		expected := services.OrderStatus(strings.ToLower(raw))
		cmd.ExpectedStatus = &expected
	}

	result, err := h.orders.UpdateOrderStatus(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildStatusChangePayload(result))
}

func (h *OrderHandlers) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req paymentStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	order, err := h.orders.UpdatePaymentStatus(ctx, services.PaymentStatusCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: services.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus))),
		ActorID:      actorID(callerFrom(r)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) updateShippingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req shippingStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	order, err := h.orders.UpdateShippingStatus(ctx, services.ShippingStatusCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: services.ShippingStatus(strings.ToLower(strings.TrimSpace(req.ShippingStatus))),
		ActorID:      actorID(callerFrom(r)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.orders.DeleteOrder(ctx, chi.URLParam(r, "orderID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwnedOrder fetches the path order and hides it from callers who do not own it.
func (h *OrderHandlers) loadOwnedOrder(w http.ResponseWriter, r *http.Request) (services.Order, bool) {
	ctx := r.Context()
	caller := callerFrom(r)
	if !caller.Admin && caller.CustomerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identity required", http.StatusUnauthorized))
		return services.Order{}, false
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return services.Order{}, false
	}
	if !canAccessOrder(caller, order) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return services.Order{}, false
	}
	return order, true
}

func canAccessOrder(caller requestctx.Caller, order services.Order) bool {
	if caller.Admin {
		return true
	}
	return caller.CustomerID != "" && caller.CustomerID == order.CustomerID
}

func toCartItems(inputs []cartItemInput) []services.CartItem {
	items := make([]services.CartItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, services.CartItem{
			ProductID:          strings.TrimSpace(in.ProductID),
			ProductName:        in.ProductName,
			ProductSKU:         in.ProductSKU,
			Quantity:           in.Quantity,
			UnitPrice:          in.UnitPrice,
			DiscountPercentage: in.DiscountPercentage,
		})
	}
	return items
}

func splitFilterValues(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"payment_status"`
	ShippingStatus string          `json:"shipping_status,omitempty"`
	Currency       string          `json:"currency"`
	Total          decimal.Decimal `json:"total_amount"`
	CreatedAt      string          `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	CustomerID      string             `json:"customer_id"`
	CustomerEmail   string             `json:"customer_email"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone,omitempty"`
	CompanyID       *string            `json:"company_id,omitempty"`
	CompanyName     *string            `json:"company_name,omitempty"`
	IsB2B           bool               `json:"is_b2b"`
	Status          string             `json:"status"`
	PaymentStatus   string             `json:"payment_status"`
	ShippingStatus  string             `json:"shipping_status,omitempty"`
	PaymentMethod   string             `json:"payment_method,omitempty"`
	Currency        string             `json:"currency"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	ShippingCost    decimal.Decimal    `json:"shipping_cost"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Items           []orderItemPayload `json:"items"`
	ShippingAddress *addressPayload    `json:"shipping_address,omitempty"`
	BillingAddress  *addressPayload    `json:"billing_address,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at,omitempty"`
	ConfirmedAt     string             `json:"confirmed_at,omitempty"`
	PaidAt          string             `json:"paid_at,omitempty"`
	ShippedAt       string             `json:"shipped_at,omitempty"`
	DeliveredAt     string             `json:"delivered_at,omitempty"`
	CancelledAt     string             `json:"cancelled_at,omitempty"`
	CancelReason    *string            `json:"cancel_reason,omitempty"`
}

type orderItemPayload struct {
	ID                 string           `json:"id"`
	ProductID          *string          `json:"product_id"`
	ProductName        string           `json:"product_name"`
	ProductSKU         string           `json:"product_sku,omitempty"`
	Quantity           int              `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	TotalPrice         decimal.Decimal  `json:"total_price"`
}

type addressPayload struct {
	Recipient  string  `json:"recipient"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

func (a *addressPayload) toDomain() *services.Address {
	if a == nil {
		return nil
	}
	return &services.Address{
		Recipient:  strings.TrimSpace(a.Recipient),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      a.Line2,
		City:       strings.TrimSpace(a.City),
		State:      a.State,
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
		Phone:      a.Phone,
	}
}

func buildAddressPayload(addr *services.Address) *addressPayload {
	if addr == nil {
		return nil
	}
	return &addressPayload{
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	}
}

type statusChangePayload struct {
	Order          orderPayload `json:"order"`
	PreviousStatus string       `json:"previous_status"`
	RestockFailed  bool         `json:"restock_failed,omitempty"`
}

type quotePayload struct {
	Subtotal      decimal.Decimal    `json:"subtotal"`
	ItemDiscounts decimal.Decimal    `json:"item_discounts"`
	OrderDiscount decimal.Decimal    `json:"order_discount"`
	Discount      decimal.Decimal    `json:"discount"`
	Tax           decimal.Decimal    `json:"tax"`
	Shipping      decimal.Decimal    `json:"shipping"`
	Total         decimal.Decimal    `json:"total"`
	Lines         []quoteLinePayload `json:"lines"`
}

type quoteLinePayload struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func buildQuotePayload(b services.PricingBreakdown) quotePayload {
	lines := make([]quoteLinePayload, 0, len(b.Lines))
	for _, line := range b.Lines {
		lines = append(lines, quoteLinePayload{Subtotal: line.Subtotal, Discount: line.Discount, Total: line.Total})
	}
	return quotePayload{
		Subtotal:      b.Subtotal,
		ItemDiscounts: b.ItemDiscounts,
		OrderDiscount: b.OrderDiscount,
		Discount:      b.Discount,
		Tax:           b.Tax,
		Shipping:      b.Shipping,
		Total:         b.Total,
		Lines:         lines,
	}
}

func buildStatusChangePayload(result services.StatusChangeResult) statusChangePayload {
	return statusChangePayload{
		Order:          buildOrderPayload(result.Order),
		PreviousStatus: string(result.PreviousStatus),
		RestockFailed:  result.RestockError != nil,
	}
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		ShippingStatus: shippingStatusString(order.ShippingStatus),
		Currency:       order.Currency,
		Total:          order.TotalAmount,
		CreatedAt:      formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductSKU:         item.ProductSKU,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			DiscountPercentage: item.DiscountPercentage,
			TotalPrice:         item.TotalPrice,
		})
	}
	return orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CompanyID:       order.CompanyID,
		CompanyName:     order.CompanyName,
		IsB2B:           order.IsB2B,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		ShippingStatus:  shippingStatusString(order.ShippingStatus),
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		Subtotal:        order.Subtotal,
		TaxAmount:       order.TaxAmount,
		ShippingCost:    order.ShippingCost,
		DiscountAmount:  order.DiscountAmount,
		TotalAmount:     order.TotalAmount,
		Items:           items,
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		BillingAddress:  buildAddressPayload(order.BillingAddress),
		Notes:           order.Notes,
		Metadata:        order.Metadata,
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		ConfirmedAt:     formatTimePtr(order.ConfirmedAt),
		PaidAt:          formatTimePtr(order.PaidAt),
		ShippedAt:       formatTimePtr(order.ShippedAt),
		DeliveredAt:     formatTimePtr(order.DeliveredAt),
		CancelledAt:     formatTimePtr(order.CancelledAt),
		CancelReason:    order.CancelReason,
	}
}

func shippingStatusString(status *domain.ShippingStatus) string {
	if status == nil {
		return ""
	}
	return string(*status)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

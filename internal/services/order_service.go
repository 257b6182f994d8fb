package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const (
	orderIDPrefix        = "ord_"
	orderItemIDPrefix    = "oit_"
	notificationIDPrefix = "ntf_"

	defaultOrderNumberPrefix = "SS"
	defaultOrderCurrency     = "EUR"
	maxNotesLength           = 2000

	orderWriteAttempts = 3
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders          repositories.OrderRepository
	Items           repositories.OrderItemRepository
	Counters        repositories.CounterRepository
	Stock           StockCoordinator
	UnitOfWork      repositories.UnitOfWork
	Notifications   NotificationPublisher
	NumberPrefix    string
	DefaultCurrency string
	AdminEmail      string
	Clock           func() time.Time
	IDGenerator     func() string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders          repositories.OrderRepository
	items           repositories.OrderItemRepository
	counters        repositories.CounterRepository
	stock           StockCoordinator
	unitOfWork      repositories.UnitOfWork
	notifications   NotificationPublisher
	numberPrefix    string
	defaultCurrency string
	adminEmail      string
	notesPolicy     *bluemonday.Policy
	clock           func() time.Time
	newID           func() string
	logger          func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Items == nil {
		return nil, errors.New("order service: order item repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("order service: stock coordinator is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	prefix := strings.ToUpper(strings.TrimSpace(deps.NumberPrefix))
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}
	defaultCurrency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = defaultOrderCurrency
	}
	if _, err := currency.ParseISO(defaultCurrency); err != nil {
		return nil, fmt.Errorf("order service: invalid default currency %q: %w", defaultCurrency, err)
	}

	return &orderService{
		orders:          deps.Orders,
		items:           deps.Items,
		counters:        deps.Counters,
		stock:           deps.Stock,
		unitOfWork:      unit,
		notifications:   deps.Notifications,
		numberPrefix:    prefix,
		defaultCurrency: defaultCurrency,
		adminEmail:      strings.TrimSpace(deps.AdminEmail),
		notesPolicy:     bluemonday.StrictPolicy(),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateOrderWithStockManagement takes stock first, then stores the order and its items.
// A storage failure returns the stock before reporting ErrOrderPersistence.
func (s *orderService) CreateOrderWithStockManagement(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if err := validateCartItems(cmd.Items); err != nil {
		return CreateOrderResult{}, err
	}
	email := strings.TrimSpace(cmd.CustomerEmail)
	if email == "" || !strings.Contains(email, "@") {
		return CreateOrderResult{}, fmt.Errorf("%w: customer email is required", ErrOrderInvalidInput)
	}
	if cmd.IsB2B && strings.TrimSpace(cmd.CompanyID) == "" {
		return CreateOrderResult{}, fmt.Errorf("%w: company id is required for business orders", ErrOrderInvalidInput)
	}
	curr, err := s.resolveCurrency(cmd.Currency)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if err := validatePercentage("order discount", cmd.OrderDiscountPercentage); err != nil {
		return CreateOrderResult{}, err
	}
	if err := validateCharges(cmd.ShippingCost, cmd.TaxAmount, cmd.TaxRatePercent); err != nil {
		return CreateOrderResult{}, err
	}

	pricing := CalculateOrderPricing(domain.PricingInput{
		Lines:                   pricingLines(cmd.Items),
		OrderDiscountPercentage: cmd.OrderDiscountPercentage,
		ShippingCost:            cmd.ShippingCost,
		TaxAmount:               cmd.TaxAmount,
		TaxRatePercent:          cmd.TaxRatePercent,
		IsB2B:                   cmd.IsB2B,
	})

	stockLines := stockLinesFromCart(cmd.Items)
	if _, err := s.stock.AdjustStockForItems(ctx, stockLines, domain.StockDecrement); err != nil {
		s.logger(ctx, "order.create.stock_rejected", map[string]any{
			"customerEmail": email,
			"error":         err.Error(),
		})
		return CreateOrderResult{}, err
	}

	now := s.now()
	order := Order{
		ID:              s.nextOrderID(),
		CustomerID:      strings.TrimSpace(cmd.CustomerID),
		CustomerEmail:   email,
		CustomerName:    strings.TrimSpace(cmd.CustomerName),
		CustomerPhone:   strings.TrimSpace(cmd.CustomerPhone),
		CompanyID:       optionalString(strings.TrimSpace(cmd.CompanyID)),
		CompanyName:     optionalString(strings.TrimSpace(cmd.CompanyName)),
		IsB2B:           cmd.IsB2B,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		Currency:        curr,
		Subtotal:        pricing.Subtotal,
		TaxAmount:       pricing.Tax,
		ShippingCost:    pricing.Shipping,
		DiscountAmount:  pricing.Discount,
		TotalAmount:     pricing.Total,
		ShippingAddress: cloneAddress(cmd.ShippingAddress),
		BillingAddress:  cloneAddress(cmd.BillingAddress),
		Notes:           s.sanitizeNotes(cmd.Notes),
		Metadata:        cloneMap(cmd.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		s.restock(ctx, order.ID, stockLines)
		return CreateOrderResult{}, fmt.Errorf("%w: allocate order number: %v", ErrOrderPersistence, err)
	}
	order.OrderNumber = number
	order.Items = s.buildOrderItems(order.ID, cmd.Items, pricing, now)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := s.items.Insert(txCtx, order.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger(ctx, "order.create.persist_failed", map[string]any{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"error":       err.Error(),
		})
		s.discardPartialOrder(ctx, order.ID)
		s.restock(ctx, order.ID, stockLines)
		return CreateOrderResult{}, fmt.Errorf("%w: %w", ErrOrderPersistence, err)
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"items":       len(order.Items),
		"total":       RoundForDisplay(order.TotalAmount),
		"isB2B":       order.IsB2B,
	})

	s.notifyOrderConfirmation(ctx, order, now)

	return CreateOrderResult{Order: order, OrderNumber: order.OrderNumber}, nil
}

func (s *orderService) QuoteOrder(_ context.Context, cmd QuoteOrderCommand) (PricingBreakdown, error) {
	if err := validateCartItems(cmd.Items); err != nil {
		return PricingBreakdown{}, err
	}
	if err := validatePercentage("order discount", cmd.OrderDiscountPercentage); err != nil {
		return PricingBreakdown{}, err
	}
	if err := validateCharges(cmd.ShippingCost, cmd.TaxAmount, cmd.TaxRatePercent); err != nil {
		return PricingBreakdown{}, err
	}
	return CalculateOrderPricing(domain.PricingInput{
		Lines:                   pricingLines(cmd.Items),
		OrderDiscountPercentage: cmd.OrderDiscountPercentage,
		ShippingCost:            cmd.ShippingCost,
		TaxAmount:               cmd.TaxAmount,
		TaxRatePercent:          cmd.TaxRatePercent,
		IsB2B:                   cmd.IsB2B,
	}), nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	return s.loadOrder(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status filter %q", ErrOrderInvalidInput, status)
		}
	}
	page, err := s.orders.List(ctx, repositories.OrderListFilter{
		CustomerID: strings.TrimSpace(filter.CustomerID),
		CompanyID:  strings.TrimSpace(filter.CompanyID),
		Status:     lo.Map(filter.Status, func(status OrderStatus, _ int) string { return string(status) }),
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// UpdateOrderStatus moves the order along its lifecycle. Cancelling returns stock on a
// best-effort basis; a restock failure is reported but never undoes the cancellation.
func (s *orderService) UpdateOrderStatus(ctx context.Context, cmd OrderStatusCommand) (StatusChangeResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return StatusChangeResult{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := OrderStatus(strings.TrimSpace(string(cmd.TargetStatus)))
	if target == "" {
		return StatusChangeResult{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	reason := strings.TrimSpace(cmd.Reason)
	var now time.Time
	before, order, changed, err := s.mutateOrder(ctx, orderID, func(order *Order) (bool, error) {
		if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
			return false, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
		}
		if order.Status == target {
			return false, nil
		}
		now = s.now()
		if err := applyOrderStatus(order, target, now); err != nil {
			return false, err
		}
		if target == domain.OrderStatusCancelled && reason != "" {
			order.CancelReason = optionalString(reason)
		}
		return true, nil
	})
	if err != nil {
		return StatusChangeResult{}, err
	}

	previous := before.Status
	result := StatusChangeResult{Order: order, PreviousStatus: previous}
	if !changed {
		return result, nil
	}

	// Only the write that moved the order into cancelled returns its stock.
	if target == domain.OrderStatusCancelled {
		restock, restockErr := s.stock.AdjustStockForItems(ctx, stockLinesFromOrderItems(order.Items), domain.StockIncrement)
		result.Restock = &restock
		if restockErr != nil {
			result.RestockError = restockErr
			s.logger(ctx, "order.cancel.restock_failed", map[string]any{
				"orderId": order.ID,
				"error":   restockErr.Error(),
			})
		}
	}

	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId":  order.ID,
		"previous": string(previous),
		"current":  string(order.Status),
		"actorId":  strings.TrimSpace(cmd.ActorID),
	})

	s.notifyStatusChange(ctx, order, StatusAxisOrder, string(previous), string(order.Status), reason, now)

	return result, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (StatusChangeResult, error) {
	return s.UpdateOrderStatus(ctx, OrderStatusCommand{
		OrderID:      cmd.OrderID,
		TargetStatus: domain.OrderStatusCancelled,
		Reason:       cmd.Reason,
		ActorID:      cmd.ActorID,
	})
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, cmd PaymentStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	var now time.Time
	before, order, changed, err := s.mutateOrder(ctx, orderID, func(order *Order) (bool, error) {
		if order.PaymentStatus == cmd.TargetStatus {
			return false, nil
		}
		now = s.now()
		return true, applyPaymentStatus(order, cmd.TargetStatus, now)
	})
	if err != nil || !changed {
		return order, err
	}

	s.notifyStatusChange(ctx, order, StatusAxisPayment, string(before.PaymentStatus), string(order.PaymentStatus), "", now)
	return order, nil
}

func (s *orderService) UpdateShippingStatus(ctx context.Context, cmd ShippingStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	var (
		now      time.Time
		previous ShippingStatus
	)
	_, order, changed, err := s.mutateOrder(ctx, orderID, func(order *Order) (bool, error) {
		previous = shippingUnset
		if order.ShippingStatus != nil {
			previous = *order.ShippingStatus
		}
		if previous == cmd.TargetStatus {
			return false, nil
		}
		now = s.now()
		return true, applyShippingStatus(order, cmd.TargetStatus, now)
	})
	if err != nil || !changed {
		return order, err
	}

	s.notifyStatusChange(ctx, order, StatusAxisShipping, displayShipping(previous), string(cmd.TargetStatus), "", now)
	return order, nil
}

// ConfirmPurchase records a settled storefront payment. Only the payment axis changes.
func (s *orderService) ConfirmPurchase(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	var now time.Time
	before, order, changed, err := s.mutateOrder(ctx, orderID, func(order *Order) (bool, error) {
		if order.PaymentStatus == domain.PaymentStatusPaid {
			return false, nil
		}
		if !lo.Contains(confirmPurchaseSources, order.PaymentStatus) {
			return false, fmt.Errorf("%w: payment %s cannot be confirmed", ErrInvalidTransition, order.PaymentStatus)
		}
		now = s.now()
		order.PaymentStatus = domain.PaymentStatusPaid
		order.PaidAt = &now
		order.UpdatedAt = now
		return true, nil
	})
	if err != nil || !changed {
		return order, err
	}

	previous := before.PaymentStatus
	s.logger(ctx, "order.purchase.confirmed", map[string]any{
		"orderId":  order.ID,
		"previous": string(previous),
	})
	s.notifyStatusChange(ctx, order, StatusAxisPayment, string(previous), string(order.PaymentStatus), "", now)
	return order, nil
}

// DeleteOrder removes an order and its items. Stock is not touched.
func (s *orderService) DeleteOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.items.DeleteByOrder(txCtx, orderID); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.orders.Delete(txCtx, orderID); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger(ctx, "order.deleted", map[string]any{"orderId": orderID})
	return nil
}

func (s *orderService) loadOrder(ctx context.Context, orderID string) (Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	order.Items = items
	return order, nil
}

// mutateOrder loads the order, lets change edit it and writes it back only while the stored
// status axes still equal the ones read. A writer that loses the race reloads and re-runs
// change against the fresh order, so a repeated request settles as a no-op. change reports
// whether anything needs writing.
func (s *orderService) mutateOrder(ctx context.Context, orderID string, change func(order *Order) (bool, error)) (Order, Order, bool, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return Order{}, Order{}, false, err
		}
		next := current
		changed, err := change(&next)
		if err != nil {
			return Order{}, Order{}, false, err
		}
		if !changed {
			return current, current, false, nil
		}
		err = s.saveOrder(ctx, next, repositories.GuardFor(current))
		if err == nil {
			return current, next, true, nil
		}
		if !errors.Is(err, ErrOrderConflict) || attempt >= orderWriteAttempts {
			return Order{}, Order{}, false, err
		}
		s.logger(ctx, "order.update.retry", map[string]any{"orderId": orderID, "attempt": attempt})
	}
}

func (s *orderService) saveOrder(ctx context.Context, order Order, guard repositories.OrderStatusGuard) error {
	return s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order, guard); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
}

func (s *orderService) buildOrderItems(orderID string, items []CartItem, pricing PricingBreakdown, now time.Time) []OrderItem {
	out := make([]OrderItem, len(items))
	for i, item := range items {
		var productID *string
		if item.Tracked() {
			productID = valuePtr(strings.TrimSpace(item.ProductID))
		}
		out[i] = OrderItem{
			ID:                 orderItemIDPrefix + s.newID(),
			OrderID:            orderID,
			ProductID:          productID,
			ProductName:        strings.TrimSpace(item.ProductName),
			ProductSKU:         strings.TrimSpace(item.ProductSKU),
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			DiscountPercentage: cloneDecimal(item.DiscountPercentage),
			TotalPrice:         pricing.Lines[i].Total,
			CreatedAt:          now,
		}
	}
	return out
}

// discardPartialOrder removes whatever part of the order reached the store. Not-found is expected.
func (s *orderService) discardPartialOrder(ctx context.Context, orderID string) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.items.DeleteByOrder(cleanupCtx, orderID); err != nil && !isNotFound(err) {
		s.logger(ctx, "order.create.cleanup_failed", map[string]any{"orderId": orderID, "target": "items", "error": err.Error()})
	}
	if err := s.orders.Delete(cleanupCtx, orderID); err != nil && !isNotFound(err) {
		s.logger(ctx, "order.create.cleanup_failed", map[string]any{"orderId": orderID, "target": "order", "error": err.Error()})
	}
}

func (s *orderService) restock(ctx context.Context, orderID string, lines []StockLine) {
	if len(lines) == 0 {
		return
	}
	if _, err := s.stock.AdjustStockForItems(ctx, lines, domain.StockIncrement); err != nil {
		s.logger(ctx, "order.create.restock_failed", map[string]any{
			"orderId": orderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) notifyOrderConfirmation(ctx context.Context, order Order, now time.Time) {
	payload := newOrderNotification(order)
	s.publishNotification(ctx, NotificationMessage{
		Kind:       NotificationOrderConfirmation,
		Recipient:  order.CustomerEmail,
		OccurredAt: now,
		Order:      payload,
	})
	if s.adminEmail != "" {
		s.publishNotification(ctx, NotificationMessage{
			Kind:       NotificationOrderConfirmationAdmin,
			Recipient:  s.adminEmail,
			OccurredAt: now,
			Order:      payload,
		})
	}
}

func (s *orderService) notifyStatusChange(ctx context.Context, order Order, axis, previous, current, reason string, now time.Time) {
	s.publishNotification(ctx, NotificationMessage{
		Kind:         NotificationOrderStatusChanged,
		Recipient:    order.CustomerEmail,
		OccurredAt:   now,
		StatusChange: newStatusChangeNotification(order, axis, previous, current, reason),
	})
}

// publishNotification is fire-and-forget: failures are logged and never reach the caller.
func (s *orderService) publishNotification(ctx context.Context, message NotificationMessage) {
	if s.notifications == nil {
		return
	}
	if strings.TrimSpace(message.Recipient) == "" {
		return
	}
	message.ID = notificationIDPrefix + s.newID()
	if _, err := s.notifications.PublishNotification(ctx, message); err != nil {
		s.logger(ctx, "order.notification.publish.failed", map[string]any{
			"kind":  message.Kind,
			"id":    message.ID,
			"error": fmt.Errorf("%w: %w", ErrNotificationFailure, err).Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, repositories.OrderNumberCounter(now.Year()), 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d-%06d", s.numberPrefix, now.Year(), seq), nil
}

func (s *orderService) resolveCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return s.defaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported currency %q", ErrOrderInvalidInput, raw)
	}
	return unit.String(), nil
}

func (s *orderService) sanitizeNotes(notes string) string {
	cleaned := strings.TrimSpace(s.notesPolicy.Sanitize(notes))
	if utf8.RuneCountInString(cleaned) > maxNotesLength {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:maxNotesLength]))
	}
	return cleaned
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func validateCartItems(items []CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be > 0", ErrOrderInvalidInput, i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d unit price must be >= 0", ErrOrderInvalidInput, i)
		}
		if strings.TrimSpace(item.ProductName) == "" {
			return fmt.Errorf("%w: item %d name is required", ErrOrderInvalidInput, i)
		}
		if err := validatePercentage(fmt.Sprintf("item %d discount", i), item.DiscountPercentage); err != nil {
			return err
		}
	}
	return nil
}

func validatePercentage(field string, pct *decimal.Decimal) error {
	if pct == nil {
		return nil
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s must be within [0, 100]", ErrOrderInvalidInput, field)
	}
	return nil
}

// validateCharges rejects negative shipping and tax inputs instead of letting pricing clamp them.
func validateCharges(shipping decimal.Decimal, taxAmount, taxRate *decimal.Decimal) error {
	if shipping.IsNegative() {
		return fmt.Errorf("%w: shipping cost must be >= 0", ErrOrderInvalidInput)
	}
	if taxAmount != nil && taxAmount.IsNegative() {
		return fmt.Errorf("%w: tax amount must be >= 0", ErrOrderInvalidInput)
	}
	return validatePercentage("tax rate", taxRate)
}

func pricingLines(items []CartItem) []domain.PricingLine {
	return lo.Map(items, func(item CartItem, _ int) domain.PricingLine {
		return domain.PricingLine{
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice,
			DiscountPercentage: item.DiscountPercentage,
		}
	})
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func cloneAddress(addr *Address) *Address {
	if addr == nil {
		return nil
	}
	cloned := *addr
	return &cloned
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	return maps.Clone(src)
}

func valuePtr[T any](v T) *T {
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	ref := v
	return &ref
}

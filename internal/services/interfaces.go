package services

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination       = domain.Pagination
	Order            = domain.Order
	OrderItem        = domain.OrderItem
	OrderStatus      = domain.OrderStatus
	PaymentStatus    = domain.PaymentStatus
	ShippingStatus   = domain.ShippingStatus
	CartItem         = domain.CartItem
	Address          = domain.Address
	Company          = domain.Company
	ProductStock     = domain.ProductStock
	StockLine        = domain.StockLine
	StockAdjustment  = domain.StockAdjustment
	StockDirection   = domain.StockDirection
	PricingBreakdown = domain.PricingBreakdown
)

// StockLedger exposes the per-product stock primitives. Insufficient stock is reported as
// (false, nil); errors are reserved for missing products, timeouts and store failures.
type StockLedger interface {
	GetStock(ctx context.Context, productID string) (ProductStock, error)
	DecrementStock(ctx context.Context, productID string, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID string, quantity int) (bool, error)
}

// StockCoordinator applies a batch of stock changes, compensating failed decrements.
type StockCoordinator interface {
	AdjustStockForItems(ctx context.Context, items []StockLine, direction StockDirection) (StockAdjustmentResult, error)
}

// OrderService orchestrates order placement and the order lifecycle.
type OrderService interface {
	CreateOrderWithStockManagement(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error)
	QuoteOrder(ctx context.Context, cmd QuoteOrderCommand) (PricingBreakdown, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	UpdateOrderStatus(ctx context.Context, cmd OrderStatusCommand) (StatusChangeResult, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (StatusChangeResult, error)
	UpdatePaymentStatus(ctx context.Context, cmd PaymentStatusCommand) (Order, error)
	UpdateShippingStatus(ctx context.Context, cmd ShippingStatusCommand) (Order, error)
	ConfirmPurchase(ctx context.Context, orderID string) (Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// CompanyService sends business-account lifecycle notices.
type CompanyService interface {
	NotifyApproval(ctx context.Context, cmd CompanyApprovalCommand) error
}

// StockAdjustmentResult reports a coordinator run. Succeeded is true only when every
// catalog item was adjusted.
type StockAdjustmentResult struct {
	Succeeded            bool
	Direction            StockDirection
	Adjustments          []StockAdjustment
	CompensationFailures []StockAdjustment
}

// CreateOrderCommand carries a checkout submission.
type CreateOrderCommand struct {
	CustomerID              string
	CustomerEmail           string
	CustomerName            string
	CustomerPhone           string
	CompanyID               string
	CompanyName             string
	IsB2B                   bool
	Currency                string
	PaymentMethod           string
	Items                   []CartItem
	OrderDiscountPercentage *decimal.Decimal
	ShippingCost            decimal.Decimal
	TaxAmount               *decimal.Decimal
	TaxRatePercent          *decimal.Decimal
	ShippingAddress         *Address
	BillingAddress          *Address
	Notes                   string
	Metadata                map[string]any
}

// CreateOrderResult returns the stored order with its human readable number.
type CreateOrderResult struct {
	Order       Order
	OrderNumber string
}

// QuoteOrderCommand prices a prospective order without touching stock or storage.
type QuoteOrderCommand struct {
	IsB2B                   bool
	Items                   []CartItem
	OrderDiscountPercentage *decimal.Decimal
	ShippingCost            decimal.Decimal
	TaxAmount               *decimal.Decimal
	TaxRatePercent          *decimal.Decimal
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	CustomerID string
	CompanyID  string
	Status     []OrderStatus
	Pagination Pagination
}

// OrderStatusCommand requests a change of the order status axis.
type OrderStatusCommand struct {
	OrderID        string
	TargetStatus   OrderStatus
	ExpectedStatus *OrderStatus
	Reason         string
	ActorID        string
}

// CancelOrderCommand cancels an order and returns its stock.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
	ActorID string
}

// PaymentStatusCommand requests a change of the payment axis.
type PaymentStatusCommand struct {
	OrderID      string
	TargetStatus PaymentStatus
	ActorID      string
}

// ShippingStatusCommand requests a change of the shipping axis.
type ShippingStatusCommand struct {
	OrderID      string
	TargetStatus ShippingStatus
	ActorID      string
}

// StatusChangeResult reports a status change. RestockError is set when a cancellation
// could not return every item to stock; the cancellation itself still stands.
type StatusChangeResult struct {
	Order          Order
	PreviousStatus OrderStatus
	Restock        *StockAdjustmentResult
	RestockError   error
}

// CompanyApprovalCommand identifies the approved company and its contact.
type CompanyApprovalCommand struct {
	Company Company
	ActorID string
}

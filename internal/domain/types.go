package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was placed and awaits confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the shop accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the order is being picked and packed.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to a carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled and its stock returned.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates the order amount was returned to the customer.
	OrderStatusRefunded OrderStatus = "refunded"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// Valid reports whether the status is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	for _, candidate := range OrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle progress is expected from the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// PaymentStatus enumerates the payment axis of an order.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Valid reports whether the payment status is known.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// ShippingStatus enumerates the fulfilment axis of an order. Orders start without one.
type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "pending"
	ShippingStatusPreparing ShippingStatus = "preparing"
	ShippingStatusShipped   ShippingStatus = "shipped"
	ShippingStatusInTransit ShippingStatus = "in_transit"
	ShippingStatusDelivered ShippingStatus = "delivered"
	ShippingStatusReturned  ShippingStatus = "returned"
)

// Valid reports whether the shipping status is known.
func (s ShippingStatus) Valid() bool {
	switch s {
	case ShippingStatusPending, ShippingStatusPreparing, ShippingStatusShipped,
		ShippingStatusInTransit, ShippingStatusDelivered, ShippingStatusReturned:
		return true
	default:
		return false
	}
}

// Order is the persisted purchase record for both retail and business customers.
type Order struct {
	ID             string
	OrderNumber    string
	CustomerID     string
	CustomerEmail  string
	CustomerName   string
	CustomerPhone  string
	CompanyID      *string
	CompanyName    *string
	IsB2B          bool
	Status         OrderStatus
	PaymentStatus  PaymentStatus
	ShippingStatus *ShippingStatus
	PaymentMethod  string
	Currency       string

	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal

	ShippingAddress *Address
	BillingAddress  *Address
	Notes           string
	Items           []OrderItem
	Metadata        map[string]any

	CreatedAt    time.Time
	UpdatedAt    time.Time
	ConfirmedAt  *time.Time
	PaidAt       *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// OrderItem stores one purchased line. ProductID is nil for off-catalog items.
type OrderItem struct {
	ID                 string
	OrderID            string
	ProductID          *string
	ProductName        string
	ProductSKU         string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage *decimal.Decimal
	TotalPrice         decimal.Decimal
	CreatedAt          time.Time
}

// Address represents postal address structures attached to orders.
type Address struct {
	Recipient  string
	Line1      string
	Line2      *string
	City       string
	State      *string
	PostalCode string
	Country    string
	Phone      *string
}

// CartItem is an order line as submitted by the storefront before persistence.
// An empty ProductID marks an off-catalog item that bypasses stock tracking.
type CartItem struct {
	ProductID          string
	ProductName        string
	ProductSKU         string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage *decimal.Decimal
}

// Tracked reports whether the item refers to a catalog product with stock.
func (i CartItem) Tracked() bool {
	return strings.TrimSpace(i.ProductID) != ""
}

// Company identifies a business customer for approval notices.
type Company struct {
	ID           string
	Name         string
	ContactEmail string
	ContactName  string
	Approved     bool
}

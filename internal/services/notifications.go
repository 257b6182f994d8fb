package services

import (
	"context"
	"strings"
	"time"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

// Notification kinds carried on the outbound topic.
const (
	NotificationOrderConfirmation      = "order.confirmation"
	NotificationOrderConfirmationAdmin = "order.confirmation.admin"
	NotificationOrderStatusChanged     = "order.status_changed"
	NotificationCompanyApproval        = "company.approval"
)

// Status axes reported in status change notifications.
const (
	StatusAxisOrder    = "status"
	StatusAxisPayment  = "payment"
	StatusAxisShipping = "shipping"
)

// NotificationPublisher hands notifications to the asynchronous delivery pipeline.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, message NotificationMessage) (string, error)
}

// NotificationMessage is the wire payload consumed by the notifier worker.
type NotificationMessage struct {
	ID           string                    `json:"id"`
	Kind         string                    `json:"kind"`
	Recipient    string                    `json:"recipient"`
	OccurredAt   time.Time                 `json:"occurredAt"`
	Order        *OrderNotification        `json:"order,omitempty"`
	StatusChange *StatusChangeNotification `json:"statusChange,omitempty"`
	Company      *CompanyNotification      `json:"company,omitempty"`
}

// OrderNotification snapshots an order for confirmation emails. Amounts are display strings.
type OrderNotification struct {
	OrderID       string                  `json:"orderId"`
	OrderNumber   string                  `json:"orderNumber"`
	CustomerName  string                  `json:"customerName"`
	CustomerEmail string                  `json:"customerEmail"`
	CompanyName   string                  `json:"companyName,omitempty"`
	IsB2B         bool                    `json:"isB2B"`
	Currency      string                  `json:"currency"`
	Subtotal      string                  `json:"subtotal"`
	Discount      string                  `json:"discount"`
	Tax           string                  `json:"tax"`
	Shipping      string                  `json:"shipping"`
	Total         string                  `json:"total"`
	Notes         string                  `json:"notes,omitempty"`
	Items         []OrderNotificationItem `json:"items"`
}

// OrderNotificationItem is a single line in a confirmation email.
type OrderNotificationItem struct {
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Total     string `json:"total"`
}

// StatusChangeNotification describes a lifecycle move on one status axis.
type StatusChangeNotification struct {
	OrderID       string `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Axis          string `json:"axis"`
	Previous      string `json:"previous"`
	Current       string `json:"current"`
	Reason        string `json:"reason,omitempty"`
}

// CompanyNotification announces a business account approval.
type CompanyNotification struct {
	CompanyID    string `json:"companyId"`
	CompanyName  string `json:"companyName"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
}

func newOrderNotification(order Order) *OrderNotification {
	items := make([]OrderNotificationItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderNotificationItem{
			Name:      item.ProductName,
			SKU:       item.ProductSKU,
			Quantity:  item.Quantity,
			UnitPrice: RoundForDisplay(item.UnitPrice),
			Total:     RoundForDisplay(item.TotalPrice),
		})
	}
	payload := &OrderNotification{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		IsB2B:         order.IsB2B,
		Currency:      order.Currency,
		Subtotal:      RoundForDisplay(order.Subtotal),
		Discount:      RoundForDisplay(order.DiscountAmount),
		Tax:           RoundForDisplay(order.TaxAmount),
		Shipping:      RoundForDisplay(order.ShippingCost),
		Total:         RoundForDisplay(order.TotalAmount),
		Notes:         order.Notes,
		Items:         items,
	}
	if order.CompanyName != nil {
		payload.CompanyName = *order.CompanyName
	}
	return payload
}

func newStatusChangeNotification(order Order, axis, previous, current, reason string) *StatusChangeNotification {
	return &StatusChangeNotification{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Axis:          axis,
		Previous:      previous,
		Current:       current,
		Reason:        strings.TrimSpace(reason),
	}
}

func newCompanyNotification(company domain.Company) *CompanyNotification {
	return &CompanyNotification{
		CompanyID:    strings.TrimSpace(company.ID),
		CompanyName:  strings.TrimSpace(company.Name),
		ContactName:  strings.TrimSpace(company.ContactName),
		ContactEmail: strings.TrimSpace(company.ContactEmail),
	}
}

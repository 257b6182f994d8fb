package repositories

import domain "github.com/solarshop412/solar-shop-sub000/internal/domain"

// OrderStatusGuard holds the status axes an order must still carry in the store for a
// conditional update to apply.
type OrderStatusGuard struct {
	Status         domain.OrderStatus
	PaymentStatus  domain.PaymentStatus
	ShippingStatus *domain.ShippingStatus
}

// GuardFor captures the status axes of order as it was read.
func GuardFor(order domain.Order) OrderStatusGuard {
	guard := OrderStatusGuard{Status: order.Status, PaymentStatus: order.PaymentStatus}
	if order.ShippingStatus != nil {
		shipping := *order.ShippingStatus
		guard.ShippingStatus = &shipping
	}
	return guard
}

// Matches reports whether stored still carries the guarded status axes.
func (g OrderStatusGuard) Matches(stored domain.Order) bool {
	if stored.Status != g.Status || stored.PaymentStatus != g.PaymentStatus {
		return false
	}
	switch {
	case g.ShippingStatus == nil:
		return stored.ShippingStatus == nil
	case stored.ShippingStatus == nil:
		return false
	default:
		return *stored.ShippingStatus == *g.ShippingStatus
	}
}

// ShippingValue returns the guarded shipping status as a nullable column value.
func (g OrderStatusGuard) ShippingValue() *string {
	if g.ShippingStatus == nil {
		return nil
	}
	value := string(*g.ShippingStatus)
	return &value
}

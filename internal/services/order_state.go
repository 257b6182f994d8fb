package services

import (
	"fmt"
	"slices"
	"time"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
	domain.OrderStatusDelivered:  {domain.OrderStatusRefunded},
	domain.OrderStatusCancelled:  {domain.OrderStatusRefunded},
	domain.OrderStatusRefunded:   {},
}

var paymentStateTransitions = map[PaymentStatus][]PaymentStatus{
	domain.PaymentStatusPending:           {domain.PaymentStatusPaid, domain.PaymentStatusFailed},
	domain.PaymentStatusPaid:              {domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded},
	domain.PaymentStatusFailed:            {},
	domain.PaymentStatusRefunded:          {},
	domain.PaymentStatusPartiallyRefunded: {},
}

// shippingUnset keys the transitions allowed from an order that has no shipping status yet.
const shippingUnset ShippingStatus = ""

var shippingStateTransitions = map[ShippingStatus][]ShippingStatus{
	shippingUnset:                  {domain.ShippingStatusPending},
	domain.ShippingStatusPending:   {domain.ShippingStatusPreparing},
	domain.ShippingStatusPreparing: {domain.ShippingStatusShipped},
	domain.ShippingStatusShipped:   {domain.ShippingStatusInTransit, domain.ShippingStatusDelivered},
	domain.ShippingStatusInTransit: {domain.ShippingStatusDelivered},
	domain.ShippingStatusDelivered: {domain.ShippingStatusReturned},
	domain.ShippingStatusReturned:  {},
}

// confirmPurchaseSources lists the payment states a storefront purchase confirmation may settle.
var confirmPurchaseSources = []PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusFailed}

func canTransition[S comparable](table map[S][]S, current, target S) bool {
	if current == target {
		return true
	}
	next, ok := table[current]
	if !ok {
		return false
	}
	return slices.Contains(next, target)
}

func applyOrderStatus(order *Order, target OrderStatus, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrOrderInvalidInput, target)
	}
	current := order.Status
	if !canTransition(orderStateTransitions, current, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	if current == target {
		return nil
	}
	order.Status = target
	order.UpdatedAt = now
	switch target {
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
	return nil
}

func applyPaymentStatus(order *Order, target PaymentStatus, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown payment status %q", ErrOrderInvalidInput, target)
	}
	current := order.PaymentStatus
	if !canTransition(paymentStateTransitions, current, target) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, current, target)
	}
	if current == target {
		return nil
	}
	order.PaymentStatus = target
	order.UpdatedAt = now
	if target == domain.PaymentStatusPaid {
		order.PaidAt = &now
	}
	return nil
}

func applyShippingStatus(order *Order, target ShippingStatus, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown shipping status %q", ErrOrderInvalidInput, target)
	}
	current := shippingUnset
	if order.ShippingStatus != nil {
		current = *order.ShippingStatus
	}
	if !canTransition(shippingStateTransitions, current, target) {
		return fmt.Errorf("%w: shipping %s -> %s", ErrInvalidTransition, displayShipping(current), target)
	}
	if current == target {
		return nil
	}
	order.ShippingStatus = valuePtr(target)
	order.UpdatedAt = now
	return nil
}

func displayShipping(status ShippingStatus) string {
	if status == shippingUnset {
		return "unset"
	}
	return string(status)
}

package services

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// ClampPercentage bounds a discount percentage to [0, 100]. Nil reads as zero.
func ClampPercentage(pct *decimal.Decimal) decimal.Decimal {
	if pct == nil {
		return zero
	}
	switch {
	case pct.LessThan(zero):
		return zero
	case pct.GreaterThan(hundred):
		return hundred
	default:
		return *pct
	}
}

// ItemSubtotal is unitPrice × quantity.
func ItemSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ItemDiscountAmount applies the line discount percentage to the line subtotal.
func ItemDiscountAmount(unitPrice decimal.Decimal, quantity int, pct *decimal.Decimal) decimal.Decimal {
	return ItemSubtotal(unitPrice, quantity).Mul(ClampPercentage(pct)).Div(hundred)
}

// ItemTotal is the line subtotal less its discount.
func ItemTotal(unitPrice decimal.Decimal, quantity int, pct *decimal.Decimal) decimal.Decimal {
	return ItemSubtotal(unitPrice, quantity).Sub(ItemDiscountAmount(unitPrice, quantity, pct))
}

// ItemsSubtotalTotal sums the undiscounted subtotals of all lines.
func ItemsSubtotalTotal(lines []domain.PricingLine) decimal.Decimal {
	return lo.Reduce(lines, func(acc decimal.Decimal, line domain.PricingLine, _ int) decimal.Decimal {
		return acc.Add(ItemSubtotal(line.UnitPrice, line.Quantity))
	}, zero)
}

// ItemDiscountsTotal sums the line-level discounts.
func ItemDiscountsTotal(lines []domain.PricingLine) decimal.Decimal {
	return lo.Reduce(lines, func(acc decimal.Decimal, line domain.PricingLine, _ int) decimal.Decimal {
		return acc.Add(ItemDiscountAmount(line.UnitPrice, line.Quantity, line.DiscountPercentage))
	}, zero)
}

// OrderDiscountAmount applies an order-wide percentage to the subtotal after item discounts.
func OrderDiscountAmount(subtotalAfterItemDiscounts decimal.Decimal, pct *decimal.Decimal) decimal.Decimal {
	if subtotalAfterItemDiscounts.LessThanOrEqual(zero) {
		return zero
	}
	return subtotalAfterItemDiscounts.Mul(ClampPercentage(pct)).Div(hundred)
}

// OrderTotal folds the components into a total that never drops below zero.
func OrderTotal(itemsSubtotal, itemDiscounts, orderDiscount, shipping, tax decimal.Decimal) decimal.Decimal {
	return decimal.Max(zero, itemsSubtotal.Sub(itemDiscounts).Sub(orderDiscount).Add(shipping).Add(tax))
}

// CalculateOrderPricing prices a full order. Business orders report tax and shipping
// but exclude both from the total.
func CalculateOrderPricing(input domain.PricingInput) domain.PricingBreakdown {
	lines := make([]domain.LinePricing, len(input.Lines))
	for i, line := range input.Lines {
		subtotal := ItemSubtotal(line.UnitPrice, line.Quantity)
		discount := ItemDiscountAmount(line.UnitPrice, line.Quantity, line.DiscountPercentage)
		lines[i] = domain.LinePricing{
			Subtotal: subtotal,
			Discount: discount,
			Total:    subtotal.Sub(discount),
		}
	}

	subtotal := ItemsSubtotalTotal(input.Lines)
	itemDiscounts := ItemDiscountsTotal(input.Lines)
	orderDiscount := OrderDiscountAmount(subtotal.Sub(itemDiscounts), input.OrderDiscountPercentage)
	discount := itemDiscounts.Add(orderDiscount)

	shipping := decimal.Max(zero, input.ShippingCost)
	tax := zero
	switch {
	case input.TaxAmount != nil:
		tax = decimal.Max(zero, *input.TaxAmount)
	case input.TaxRatePercent != nil:
		taxable := decimal.Max(zero, subtotal.Sub(discount))
		tax = taxable.Mul(ClampPercentage(input.TaxRatePercent)).Div(hundred)
	}

	total := OrderTotal(subtotal, itemDiscounts, orderDiscount, shipping, tax)
	if input.IsB2B {
		total = OrderTotal(subtotal, itemDiscounts, orderDiscount, zero, zero)
	}

	return domain.PricingBreakdown{
		Subtotal:      subtotal,
		ItemDiscounts: itemDiscounts,
		OrderDiscount: orderDiscount,
		Discount:      discount,
		Tax:           tax,
		Shipping:      shipping,
		Total:         total,
		Lines:         lines,
	}
}

// RoundForDisplay rounds half away from zero to two decimals. Only presentation layers call it.
func RoundForDisplay(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

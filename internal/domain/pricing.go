package domain

import "github.com/shopspring/decimal"

// PricingLine is a priced line fed to the calculator.
type PricingLine struct {
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage *decimal.Decimal
}

// PricingInput gathers everything needed to total an order.
type PricingInput struct {
	Lines                   []PricingLine
	OrderDiscountPercentage *decimal.Decimal
	ShippingCost            decimal.Decimal
	// TaxAmount wins over TaxRatePercent when both are set.
	TaxAmount      *decimal.Decimal
	TaxRatePercent *decimal.Decimal
	IsB2B          bool
}

// PricingBreakdown captures the aggregated monetary results of pricing an order.
// Values carry full precision; round only for display.
type PricingBreakdown struct {
	Subtotal      decimal.Decimal
	ItemDiscounts decimal.Decimal
	OrderDiscount decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	Lines         []LinePricing
}

// LinePricing stores the per-line pricing outputs.
type LinePricing struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

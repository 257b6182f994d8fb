package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold is the quantity at or below which a product reads as low stock.
const DefaultLowStockThreshold = 5

// StockStatus is derived from a product's quantity and never stored independently of it.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// CalculateStockStatus derives the status for a quantity against threshold as given. With a
// threshold of 0 no positive quantity reads as low stock.
func CalculateStockStatus(quantity, threshold int) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity <= threshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// ThresholdOrDefault returns threshold, or DefaultLowStockThreshold when it is negative
// (unset). Stores apply it where a threshold is written or read, never inside
// CalculateStockStatus.
func ThresholdOrDefault(threshold int) int {
	if threshold < 0 {
		return DefaultLowStockThreshold
	}
	return threshold
}

// ProductStock is the stock-relevant projection of a catalog product.
type ProductStock struct {
	ProductID string
	Name      string
	SKU       string
	Price     decimal.Decimal
	Quantity  int
	Status    StockStatus
	Threshold int
	UpdatedAt time.Time
}

// StockDirection selects whether a batch adjustment removes or returns stock.
type StockDirection string

const (
	StockDecrement StockDirection = "decrement"
	StockIncrement StockDirection = "increment"
)

// StockLine is a single product quantity fed to the stock coordinator.
type StockLine struct {
	ProductID string
	Quantity  int
}

// StockAdjustment records the outcome of adjusting one line. It is never persisted.
type StockAdjustment struct {
	ProductID string
	Quantity  int
	Direction StockDirection
	Success   bool
	Err       error
}

package services

import "errors"

var (
	// ErrInsufficientStock indicates a product could not cover the requested quantity.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrProductNotFound indicates a referenced catalog product does not exist.
	ErrProductNotFound = errors.New("stock: product not found")
	// ErrStockTimeout indicates a stock operation did not finish within its deadline.
	ErrStockTimeout = errors.New("stock: operation timed out")
	// ErrStockInvalidInput signals the caller provided invalid stock arguments.
	ErrStockInvalidInput = errors.New("stock: invalid input")
	// ErrRestockIncomplete indicates one or more increments failed while returning stock.
	ErrRestockIncomplete = errors.New("stock: restock incomplete")

	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrInvalidTransition indicates a status change not allowed by the lifecycle tables.
	ErrInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderPersistence indicates the order or its items could not be stored.
	// Any stock taken for the order has been returned when this is reported.
	ErrOrderPersistence = errors.New("order: persistence failure")

	// ErrNotificationFailure marks failed outbound notifications. It is logged, never returned
	// from order operations.
	ErrNotificationFailure = errors.New("notification: delivery failed")
	// ErrCompanyInvalidInput signals an incomplete company approval request.
	ErrCompanyInvalidInput = errors.New("company: invalid input")
)

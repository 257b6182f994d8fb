package repositories

import "fmt"

// StockErrorCode enumerates repository error causes for stock operations.
type StockErrorCode string

const (
	// StockErrorUnknown represents an unspecified failure.
	StockErrorUnknown StockErrorCode = "stock_unknown"
	// StockErrorInsufficient indicates the requested decrement exceeds the stored quantity.
	StockErrorInsufficient StockErrorCode = "stock_insufficient"
	// StockErrorProductNotFound indicates the product does not exist.
	StockErrorProductNotFound StockErrorCode = "stock_product_not_found"
	// StockErrorInvalidDelta indicates a zero delta was supplied.
	StockErrorInvalidDelta StockErrorCode = "stock_invalid_delta"
)

// StockError wraps stock-specific failures with machine readable codes.
type StockError struct {
	Op      string
	Code    StockErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StockError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *StockError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the product was missing.
func (e *StockError) IsNotFound() bool {
	return e != nil && e.Code == StockErrorProductNotFound
}

// IsConflict reports whether the write lost against the stored quantity.
func (e *StockError) IsConflict() bool {
	return e != nil && e.Code == StockErrorInsufficient
}

// IsUnavailable is always false; transport failures surface through the store's own error type.
func (e *StockError) IsUnavailable() bool {
	return false
}

// NewStockError constructs a typed stock error.
func NewStockError(code StockErrorCode, message string, err error) *StockError {
	if message == "" {
		message = string(code)
	}
	return &StockError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

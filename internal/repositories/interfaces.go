package repositories

import (
	"context"
	"time"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	Products() ProductStockRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Counters() CounterRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductStockRepository reads and mutates the stock columns of catalog products.
type ProductStockRepository interface {
	GetStock(ctx context.Context, productID string) (domain.ProductStock, error)
	// ApplyStockDelta adds delta to the stored quantity and recomputes the stock status in
	// one atomic write. Negative deltas only apply while the quantity covers them; otherwise
	// a StockError with StockErrorInsufficient is returned and nothing changes.
	ApplyStockDelta(ctx context.Context, productID string, delta int, at time.Time) (domain.ProductStock, error)
}

// OrderRepository persists order headers and provides query helpers for customers and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	// Update replaces the stored order only while its status axes still match guard. A
	// mismatch returns a RepositoryError whose IsConflict reports true and writes nothing.
	Update(ctx context.Context, order domain.Order, guard OrderStatusGuard) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	Delete(ctx context.Context, orderID string) error
}

// OrderItemRepository stores the purchased lines of an order.
type OrderItemRepository interface {
	Insert(ctx context.Context, items []domain.OrderItem) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	DeleteByOrder(ctx context.Context, orderID string) error
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// OrderListFilter narrows order listings. Results are ordered newest first.
type OrderListFilter struct {
	CustomerID string
	CompanyID  string
	Status     []string
	Pagination domain.Pagination
}

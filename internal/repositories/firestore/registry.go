package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

// Registry wires the Firestore repositories behind a shared provider.
type Registry struct {
	provider *pfirestore.Provider
	products *ProductStockRepository
	orders   *OrderRepository
	items    *OrderItemRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductStockRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	items, err := NewOrderItemRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider: provider,
		products: products,
		orders:   orders,
		items:    items,
		counters: counters,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error {
	if err := r.provider.Close(ctx); err != nil {
		return fmt.Errorf("firestore registry: close: %w", err)
	}
	return nil
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

func (r *Registry) Products() repositories.ProductStockRepository { return r.products }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) OrderItems() repositories.OrderItemRepository { return r.items }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// RunInTx runs fn inside a Firestore transaction. Repositories called with the
// supplied context join it; nested calls reuse the outer transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}

// ProductStock exposes the concrete product repository for seeding.
func (r *Registry) ProductStock() *ProductStockRepository { return r.products }

// Provider returns the shared Firestore provider so sibling stores can reuse the client.
func (r *Registry) Provider() *pfirestore.Provider { return r.provider }

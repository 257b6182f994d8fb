// Package memory keeps every repository in process. It backs local development and tests.
package memory

import (
	"context"
	"sync"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

// Store holds all collections behind one mutex and satisfies repositories.Registry.
type Store struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	products map[string]domain.ProductStock
	orders   map[string]domain.Order
	items    map[string][]domain.OrderItem
	counters map[string]int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]domain.ProductStock),
		orders:   make(map[string]domain.Order),
		items:    make(map[string][]domain.OrderItem),
		counters: make(map[string]int64),
	}
}

var _ repositories.Registry = (*Store)(nil)

// Close implements repositories.Registry.
func (s *Store) Close(context.Context) error { return nil }

// Ping implements repositories.Registry.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Products returns the product stock repository.
func (s *Store) Products() repositories.ProductStockRepository { return productRepo{s} }

// Orders returns the order repository.
func (s *Store) Orders() repositories.OrderRepository { return orderRepo{s} }

// OrderItems returns the order item repository.
func (s *Store) OrderItems() repositories.OrderItemRepository { return itemRepo{s} }

// Counters returns the counter repository.
func (s *Store) Counters() repositories.CounterRepository { return counterRepo{s} }

type txKey struct{}

// journal records undo steps for writes made inside RunInTx.
type journal struct {
	undo []func()
}

// RunInTx serialises transactions and reverts their order and item writes when fn fails.
// Stock and counters are not journaled; the services never change them inside a transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(txKey{}).(*journal); nested {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// record registers an undo step. Callers hold s.mu.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

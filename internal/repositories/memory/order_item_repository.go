package memory

import (
	"context"
	"slices"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

type itemRepo struct{ s *Store }

func (r itemRepo) Insert(ctx context.Context, items []domain.OrderItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		if _, ok := r.s.orders[item.OrderID]; !ok {
			return notFound("orderItems.insert", "order %s not found", item.OrderID)
		}
	}
	for _, item := range items {
		orderID := item.OrderID
		previous := r.s.items[orderID]
		r.s.items[orderID] = append(slices.Clone(previous), item)
		record(ctx, func() {
			if previous == nil {
				delete(r.s.items, orderID)
				return
			}
			r.s.items[orderID] = previous
		})
	}
	return nil
}

func (r itemRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.items[orderID]), nil
}

func (r itemRepo) DeleteByOrder(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous, ok := r.s.items[orderID]
	if !ok {
		return nil
	}
	delete(r.s.items, orderID)
	record(ctx, func() { r.s.items[orderID] = previous })
	return nil
}

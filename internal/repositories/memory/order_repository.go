package memory

import (
	"context"
	"slices"
	"strings"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/pagination"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Insert(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.orders[order.ID]; exists {
		return conflict("orders.insert", "order %s already exists", order.ID)
	}
	order.Items = nil
	r.s.orders[order.ID] = order
	record(ctx, func() { delete(r.s.orders, order.ID) })
	return nil
}

func (r orderRepo) Update(ctx context.Context, order domain.Order, guard repositories.OrderStatusGuard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous, exists := r.s.orders[order.ID]
	if !exists {
		return notFound("orders.update", "order %s not found", order.ID)
	}
	if !guard.Matches(previous) {
		return conflict("orders.update", "order %s status changed to %s", order.ID, previous.Status)
	}
	order.Items = nil
	r.s.orders[order.ID] = order
	record(ctx, func() { r.s.orders[order.ID] = previous })
	return nil
}

func (r orderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("orders.findById", "order %s not found", orderID)
	}
	return order, nil
}

func (r orderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if err := ctx.Err(); err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	limit := pagination.PageSize(filter.Pagination.PageSize)

	r.s.mu.Lock()
	matches := make([]domain.Order, 0, len(r.s.orders))
	for _, order := range r.s.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.CompanyID != "" && (order.CompanyID == nil || *order.CompanyID != filter.CompanyID) {
			continue
		}
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, string(order.Status)) {
			continue
		}
		if !cursor.After(order.CreatedAt, order.ID) {
			continue
		}
		matches = append(matches, order)
	}
	r.s.mu.Unlock()

	slices.SortFunc(matches, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	page := domain.CursorPage[domain.Order]{Items: matches}
	if len(matches) > limit {
		page.Items = matches[:limit]
		last := page.Items[limit-1]
		token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func (r orderRepo) Delete(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	previous, ok := r.s.orders[orderID]
	if !ok {
		return notFound("orders.delete", "order %s not found", orderID)
	}
	delete(r.s.orders, orderID)
	record(ctx, func() { r.s.orders[orderID] = previous })
	return nil
}

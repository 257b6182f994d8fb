package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

// OrderItemRepository stores order lines. Off-catalog lines keep a NULL product_id.
type OrderItemRepository struct {
	store *Store
}

var _ repositories.OrderItemRepository = (*OrderItemRepository)(nil)

func (r *OrderItemRepository) Insert(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		var discount decimal.NullDecimal
		if item.DiscountPercentage != nil {
			discount = decimal.NewNullDecimal(*item.DiscountPercentage)
		}
		rows = append(rows, []any{
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.ProductSKU,
			item.Quantity,
			item.UnitPrice,
			discount,
			item.TotalPrice,
			item.CreatedAt.UTC(),
		})
	}
	_, err := r.store.q(ctx).CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"id", "order_id", "product_id", "product_name", "product_sku", "quantity", "unit_price", "discount_percentage", "total_price", "created_at"},
		pgx.CopyFromRows(rows),
	)
	return wrapError("orderItems.insert", err)
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.store.q(ctx).Query(ctx, `
SELECT id, order_id, product_id, product_name, product_sku, quantity, unit_price, discount_percentage, total_price, created_at
FROM order_items WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, wrapError("orderItems.listByOrder", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var (
			item     domain.OrderItem
			discount decimal.NullDecimal
		)
		if err := row.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductSKU,
			&item.Quantity,
			&item.UnitPrice,
			&discount,
			&item.TotalPrice,
			&item.CreatedAt,
		); err != nil {
			return domain.OrderItem{}, err
		}
		if discount.Valid {
			item.DiscountPercentage = &discount.Decimal
		}
		item.CreatedAt = item.CreatedAt.UTC()
		return item, nil
	})
	if err != nil {
		return nil, wrapError("orderItems.listByOrder", err)
	}
	return items, nil
}

func (r *OrderItemRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := r.store.q(ctx).Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	return wrapError("orderItems.deleteByOrder", err)
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/pagination"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const orderColumns = `id, order_number, customer_id, customer_email, customer_name, customer_phone,
    company_id, company_name, is_b2b, status, payment_status, shipping_status, payment_method, currency,
    subtotal, tax_amount, shipping_cost, discount_amount, total_amount,
    shipping_address, billing_address, notes, metadata,
    created_at, updated_at, confirmed_at, paid_at, shipped_at, delivered_at, cancelled_at, cancel_reason`

// OrderRepository stores order headers in the orders table.
type OrderRepository struct {
	store *Store
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	_, err := r.store.q(ctx).Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`, orderArgs(order)...)
	return wrapError("orders.insert", err)
}

// Update only matches while the stored status axes equal guard, so of two writers that read
// the same status only the first one applies.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order, guard repositories.OrderStatusGuard) error {
	const op = "orders.update"
	args := append(orderArgs(order), string(guard.Status), string(guard.PaymentStatus), guard.ShippingValue())
	q := r.store.q(ctx)
	tag, err := q.Exec(ctx, `UPDATE orders SET
    order_number = $2, customer_id = $3, customer_email = $4, customer_name = $5, customer_phone = $6,
    company_id = $7, company_name = $8, is_b2b = $9, status = $10, payment_status = $11,
    shipping_status = $12, payment_method = $13, currency = $14,
    subtotal = $15, tax_amount = $16, shipping_cost = $17, discount_amount = $18, total_amount = $19,
    shipping_address = $20, billing_address = $21, notes = $22, metadata = $23,
    created_at = $24, updated_at = $25, confirmed_at = $26, paid_at = $27, shipped_at = $28,
    delivered_at = $29, cancelled_at = $30, cancel_reason = $31
WHERE id = $1 AND status = $32 AND payment_status = $33 AND shipping_status IS NOT DISTINCT FROM $34::text`, args...)
	if err != nil {
		return wrapError(op, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
		return wrapError(op, err)
	}
	if !exists {
		return errNotFound(op, "order %s not found", order.ID)
	}
	return errConflict(op, "order %s status changed concurrently", order.ID)
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	rows, err := r.store.q(ctx).Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return domain.Order{}, wrapError("orders.findById", err)
	}
	order, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return domain.Order{}, wrapError("orders.findById", err)
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	limit := pagination.PageSize(filter.Pagination.PageSize)

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.CustomerID != "" {
		conds = append(conds, "customer_id = "+arg(filter.CustomerID))
	}
	if filter.CompanyID != "" {
		conds = append(conds, "company_id = "+arg(filter.CompanyID))
	}
	if len(filter.Status) > 0 {
		conds = append(conds, "status = ANY("+arg(filter.Status)+")")
	}
	if !cursor.IsZero() {
		conds = append(conds, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(cursor.CreatedAt.UTC()), arg(cursor.ID)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limit+1)

	rows, err := r.store.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapError("orders.list", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapError("orders.list", err)
	}

	page := domain.CursorPage[domain.Order]{Items: orders}
	if len(orders) > limit {
		page.Items = orders[:limit]
		last := page.Items[limit-1]
		token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	tag, err := r.store.q(ctx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return wrapError("orders.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound("orders.delete", "order %s not found", orderID)
	}
	return nil
}

func orderArgs(order domain.Order) []any {
	var shipping *string
	if order.ShippingStatus != nil {
		shipping = new(string)
		*shipping = string(*order.ShippingStatus)
	}
	return []any{
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.CustomerEmail,
		order.CustomerName,
		order.CustomerPhone,
		order.CompanyID,
		order.CompanyName,
		order.IsB2B,
		string(order.Status),
		string(order.PaymentStatus),
		shipping,
		order.PaymentMethod,
		order.Currency,
		order.Subtotal,
		order.TaxAmount,
		order.ShippingCost,
		order.DiscountAmount,
		order.TotalAmount,
		order.ShippingAddress,
		order.BillingAddress,
		order.Notes,
		order.Metadata,
		order.CreatedAt.UTC(),
		order.UpdatedAt.UTC(),
		order.ConfirmedAt,
		order.PaidAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CancelledAt,
		order.CancelReason,
	}
}

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var (
		order                 domain.Order
		status, paymentStatus string
		shippingStatus        *string
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.CustomerEmail,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CompanyID,
		&order.CompanyName,
		&order.IsB2B,
		&status,
		&paymentStatus,
		&shippingStatus,
		&order.PaymentMethod,
		&order.Currency,
		&order.Subtotal,
		&order.TaxAmount,
		&order.ShippingCost,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.Notes,
		&order.Metadata,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ConfirmedAt,
		&order.PaidAt,
		&order.ShippedAt,
		&order.DeliveredAt,
		&order.CancelledAt,
		&order.CancelReason,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if shippingStatus != nil {
		s := domain.ShippingStatus(*shippingStatus)
		order.ShippingStatus = &s
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	for _, ts := range []*time.Time{order.ConfirmedAt, order.PaidAt, order.ShippedAt, order.DeliveredAt, order.CancelledAt} {
		if ts != nil {
			*ts = ts.UTC()
		}
	}
	return order, nil
}

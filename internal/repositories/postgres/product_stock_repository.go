package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const productColumns = `id, name, sku, price, stock_quantity, stock_status, low_stock_threshold, updated_at`

// applyStockDeltaSQL only matches while the resulting quantity stays non-negative, so two
// concurrent decrements can never both take the last unit.
const applyStockDeltaSQL = `
UPDATE products
SET stock_quantity = stock_quantity + $2,
    stock_status = CASE
        WHEN stock_quantity + $2 <= 0 THEN 'out_of_stock'
        WHEN stock_quantity + $2 <= low_stock_threshold THEN 'low_stock'
        ELSE 'in_stock'
    END,
    updated_at = $3
WHERE id = $1 AND stock_quantity + $2 >= 0
RETURNING ` + productColumns

// ProductStockRepository reads and conditionally updates product stock rows.
type ProductStockRepository struct {
	store *Store
}

var _ repositories.ProductStockRepository = (*ProductStockRepository)(nil)

func (r *ProductStockRepository) GetStock(ctx context.Context, productID string) (domain.ProductStock, error) {
	row := r.store.q(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProductStock{}, stockError("products.getStock", repositories.StockErrorProductNotFound, "product "+productID+" not found", nil)
	}
	if err != nil {
		return domain.ProductStock{}, wrapError("products.getStock", err)
	}
	return product, nil
}

func (r *ProductStockRepository) ApplyStockDelta(ctx context.Context, productID string, delta int, at time.Time) (domain.ProductStock, error) {
	const op = "products.applyStockDelta"
	if delta == 0 {
		return domain.ProductStock{}, stockError(op, repositories.StockErrorInvalidDelta, "delta must not be zero", nil)
	}

	q := r.store.q(ctx)
	product, err := scanProduct(q.QueryRow(ctx, applyStockDeltaSQL, productID, delta, at.UTC()))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.ProductStock{}, wrapError(op, err)
	}

	// No row matched: either the product is missing or the guard rejected the delta.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return domain.ProductStock{}, wrapError(op, err)
	}
	if !exists {
		return domain.ProductStock{}, stockError(op, repositories.StockErrorProductNotFound, "product "+productID+" not found", nil)
	}
	return domain.ProductStock{}, stockError(op, repositories.StockErrorInsufficient, "insufficient stock for "+productID, nil)
}

// SeedProduct upserts a product row with its derived stock status. A negative threshold
// becomes DefaultLowStockThreshold.
func (r *ProductStockRepository) SeedProduct(ctx context.Context, product domain.ProductStock) error {
	product.Threshold = domain.ThresholdOrDefault(product.Threshold)
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = time.Now()
	}
	_, err := r.store.q(ctx).Exec(ctx, `
INSERT INTO products (`+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    sku = EXCLUDED.sku,
    price = EXCLUDED.price,
    stock_quantity = EXCLUDED.stock_quantity,
    stock_status = EXCLUDED.stock_status,
    low_stock_threshold = EXCLUDED.low_stock_threshold,
    updated_at = EXCLUDED.updated_at`,
		strings.TrimSpace(product.ProductID),
		product.Name,
		product.SKU,
		product.Price,
		product.Quantity,
		string(domain.CalculateStockStatus(product.Quantity, product.Threshold)),
		product.Threshold,
		product.UpdatedAt.UTC(),
	)
	return wrapError("products.seed", err)
}

func scanProduct(row pgx.Row) (domain.ProductStock, error) {
	var (
		product domain.ProductStock
		status  string
	)
	err := row.Scan(
		&product.ProductID,
		&product.Name,
		&product.SKU,
		&product.Price,
		&product.Quantity,
		&status,
		&product.Threshold,
		&product.UpdatedAt,
	)
	if err != nil {
		return domain.ProductStock{}, err
	}
	product.Status = domain.StockStatus(status)
	product.UpdatedAt = product.UpdatedAt.UTC()
	return product, nil
}

func stockError(op string, code repositories.StockErrorCode, message string, cause error) error {
	err := repositories.NewStockError(code, message, cause)
	err.Op = op
	return err
}

package memory

import (
	"context"
	"strings"
	"time"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

type productRepo struct{ s *Store }

// SeedProduct stores a product stock row, recomputing its status. A negative threshold
// becomes DefaultLowStockThreshold.
func (s *Store) SeedProduct(product domain.ProductStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product.Threshold = domain.ThresholdOrDefault(product.Threshold)
	product.Status = domain.CalculateStockStatus(product.Quantity, product.Threshold)
	s.products[strings.TrimSpace(product.ProductID)] = product
}

func (r productRepo) GetStock(ctx context.Context, productID string) (domain.ProductStock, error) {
	if err := ctx.Err(); err != nil {
		return domain.ProductStock{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[productID]
	if !ok {
		return domain.ProductStock{}, stockNotFound("products.getStock", productID)
	}
	return product, nil
}

func (r productRepo) ApplyStockDelta(ctx context.Context, productID string, delta int, at time.Time) (domain.ProductStock, error) {
	const op = "products.applyStockDelta"
	if err := ctx.Err(); err != nil {
		return domain.ProductStock{}, err
	}
	if delta == 0 {
		err := repositories.NewStockError(repositories.StockErrorInvalidDelta, "delta must not be zero", nil)
		err.Op = op
		return domain.ProductStock{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product, ok := r.s.products[productID]
	if !ok {
		return domain.ProductStock{}, stockNotFound(op, productID)
	}
	if delta < 0 && product.Quantity < -delta {
		err := repositories.NewStockError(repositories.StockErrorInsufficient, "insufficient stock for "+productID, nil)
		err.Op = op
		return domain.ProductStock{}, err
	}
	product.Quantity += delta
	product.Status = domain.CalculateStockStatus(product.Quantity, product.Threshold)
	product.UpdatedAt = at.UTC()
	r.s.products[productID] = product
	return product, nil
}

func stockNotFound(op, productID string) error {
	err := repositories.NewStockError(repositories.StockErrorProductNotFound, "product "+productID+" not found", nil)
	err.Op = op
	return err
}

package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const productsCollection = "products"

type productDocument struct {
	Name              string    `firestore:"name"`
	SKU               string    `firestore:"sku"`
	Price             string    `firestore:"price"`
	StockQuantity     int       `firestore:"stockQuantity"`
	StockStatus       string    `firestore:"stockStatus"`
	LowStockThreshold *int      `firestore:"lowStockThreshold"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

// ProductStockRepository reads and adjusts the stock fields of catalog product documents.
type ProductStockRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.Collection[productDocument]
}

// NewProductStockRepository constructs a Firestore-backed product stock repository.
func NewProductStockRepository(provider *pfirestore.Provider) (*ProductStockRepository, error) {
	if provider == nil {
		return nil, errors.New("product stock repository requires firestore provider")
	}
	products := pfirestore.NewCollection[productDocument](provider, productsCollection)
	return &ProductStockRepository{provider: provider, products: products}, nil
}

func (r *ProductStockRepository) GetStock(ctx context.Context, productID string) (domain.ProductStock, error) {
	if r == nil || r.provider == nil {
		return domain.ProductStock{}, errors.New("product stock repository not initialised")
	}
	id := strings.TrimSpace(productID)
	doc, err := r.products.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return domain.ProductStock{}, productNotFound("products.getStock", id, err)
		}
		return domain.ProductStock{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ApplyStockDelta reads and writes the product inside one transaction so concurrent
// decrements can never take the quantity below zero.
func (r *ProductStockRepository) ApplyStockDelta(ctx context.Context, productID string, delta int, at time.Time) (domain.ProductStock, error) {
	const op = "products.applyStockDelta"
	if r == nil || r.provider == nil {
		return domain.ProductStock{}, errors.New("product stock repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if delta == 0 {
		err := repositories.NewStockError(repositories.StockErrorInvalidDelta, "delta must not be zero", nil)
		err.Op = op
		return domain.ProductStock{}, err
	}

	at = at.UTC()
	var result domain.ProductStock
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		current, err := r.products.Get(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return productNotFound(op, id, err)
			}
			return err
		}
		doc := current.Data
		if delta < 0 && doc.StockQuantity < -delta {
			stockErr := repositories.NewStockError(repositories.StockErrorInsufficient, fmt.Sprintf("insufficient stock for %s", id), nil)
			stockErr.Op = op
			return stockErr
		}

		doc.StockQuantity += delta
		doc.StockStatus = string(domain.CalculateStockStatus(doc.StockQuantity, doc.threshold()))
		doc.UpdatedAt = at

		if err := r.products.Update(ctx, id, []firestore.Update{
			{Path: "stockQuantity", Value: doc.StockQuantity},
			{Path: "stockStatus", Value: doc.StockStatus},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}); err != nil {
			return err
		}
		result = doc.toDomain(id)
		return nil
	})
	if err != nil {
		return domain.ProductStock{}, wrapStockError(op, err)
	}
	return result, nil
}

// SeedProduct writes a product document. Used by tooling and integration tests. A negative
// threshold becomes DefaultLowStockThreshold.
func (r *ProductStockRepository) SeedProduct(ctx context.Context, product domain.ProductStock) error {
	threshold := domain.ThresholdOrDefault(product.Threshold)
	doc := productDocument{
		Name:              product.Name,
		SKU:               product.SKU,
		Price:             product.Price.String(),
		StockQuantity:     product.Quantity,
		StockStatus:       string(domain.CalculateStockStatus(product.Quantity, threshold)),
		LowStockThreshold: &threshold,
		UpdatedAt:         product.UpdatedAt.UTC(),
	}
	return r.products.Set(ctx, strings.TrimSpace(product.ProductID), doc)
}

func (d productDocument) toDomain(id string) domain.ProductStock {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		price = decimal.Zero
	}
	threshold := d.threshold()
	return domain.ProductStock{
		ProductID: id,
		Name:      d.Name,
		SKU:       d.SKU,
		Price:     price,
		Quantity:  d.StockQuantity,
		Status:    domain.CalculateStockStatus(d.StockQuantity, threshold),
		Threshold: threshold,
		UpdatedAt: d.UpdatedAt,
	}
}

// threshold reads the stored threshold. Documents written without one use the default.
func (d productDocument) threshold() int {
	if d.LowStockThreshold == nil {
		return domain.DefaultLowStockThreshold
	}
	return domain.ThresholdOrDefault(*d.LowStockThreshold)
}

func productNotFound(op, id string, err error) error {
	stockErr := repositories.NewStockError(repositories.StockErrorProductNotFound, fmt.Sprintf("product %s not found", id), err)
	stockErr.Op = op
	return stockErr
}

func wrapStockError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		if stockErr.Op == "" {
			stockErr.Op = op
		}
		return stockErr
	}
	return pfirestore.WrapError(op, err)
}

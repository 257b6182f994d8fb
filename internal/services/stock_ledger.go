package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const defaultStockOperationTimeout = 5 * time.Second

// StockLedgerDeps bundles collaborators required to construct the stock ledger.
type StockLedgerDeps struct {
	Products         repositories.ProductStockRepository
	OperationTimeout time.Duration
	Clock            func() time.Time
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type stockLedger struct {
	products repositories.ProductStockRepository
	timeout  time.Duration
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewStockLedger wires the product stock repository into a StockLedger.
func NewStockLedger(deps StockLedgerDeps) (StockLedger, error) {
	if deps.Products == nil {
		return nil, errors.New("stock ledger: product stock repository is required")
	}

	timeout := deps.OperationTimeout
	if timeout <= 0 {
		timeout = defaultStockOperationTimeout
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &stockLedger{
		products: deps.Products,
		timeout:  timeout,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (l *stockLedger) GetStock(ctx context.Context, productID string) (ProductStock, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductStock{}, fmt.Errorf("%w: product id is required", ErrStockInvalidInput)
	}

	opCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	stock, err := l.products.GetStock(opCtx, productID)
	if err != nil {
		return ProductStock{}, l.mapError(productID, err)
	}
	return stock, nil
}

func (l *stockLedger) DecrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	return l.apply(ctx, "stock.decrement", productID, -quantity, quantity)
}

func (l *stockLedger) IncrementStock(ctx context.Context, productID string, quantity int) (bool, error) {
	return l.apply(ctx, "stock.increment", productID, quantity, quantity)
}

func (l *stockLedger) apply(ctx context.Context, op, productID string, delta, quantity int) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, fmt.Errorf("%w: product id is required", ErrStockInvalidInput)
	}
	if quantity <= 0 {
		return false, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	stock, err := l.products.ApplyStockDelta(opCtx, productID, delta, l.clock())
	if err != nil {
		var stockErr *repositories.StockError
		if errors.As(err, &stockErr) && stockErr.Code == repositories.StockErrorInsufficient {
			l.logger(ctx, op+".insufficient", map[string]any{
				"productId": productID,
				"requested": quantity,
			})
			return false, nil
		}
		mapped := l.mapError(productID, err)
		l.logger(ctx, op+".failed", map[string]any{
			"productId": productID,
			"quantity":  quantity,
			"error":     mapped.Error(),
		})
		return false, mapped
	}

	l.logger(ctx, op, map[string]any{
		"productId": productID,
		"quantity":  quantity,
		"remaining": stock.Quantity,
		"status":    string(stock.Status),
	})
	return true, nil
}

func (l *stockLedger) mapError(productID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: product %s: %v", ErrStockTimeout, productID, err)
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		case repoErr.IsUnavailable():
			return fmt.Errorf("stock: repository unavailable: %w", err)
		}
	}
	return err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
)

const (
	instrumentationName        = "github.com/solarshop412/solar-shop-sub000/internal/services"
	defaultCompensationTimeout = 15 * time.Second
)

// StockCoordinatorDeps bundles collaborators required to construct the stock coordinator.
type StockCoordinatorDeps struct {
	Ledger              StockLedger
	CompensationTimeout time.Duration
	Tracer              trace.Tracer
	Meter               metric.Meter
	Logger              func(ctx context.Context, event string, fields map[string]any)
}

type stockCoordinator struct {
	ledger              StockLedger
	compensationTimeout time.Duration
	tracer              trace.Tracer
	adjustments         metric.Int64Counter
	compensations       metric.Int64Counter
	logger              func(context.Context, string, map[string]any)
}

// NewStockCoordinator wires a StockLedger into a sequential, compensating coordinator.
func NewStockCoordinator(deps StockCoordinatorDeps) (StockCoordinator, error) {
	if deps.Ledger == nil {
		return nil, errors.New("stock coordinator: stock ledger is required")
	}

	timeout := deps.CompensationTimeout
	if timeout <= 0 {
		timeout = defaultCompensationTimeout
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	adjustments, err := meter.Int64Counter(
		"stock.adjustments",
		metric.WithDescription("Count of per-item stock adjustments by direction and outcome"),
	)
	if err != nil {
		logger(context.Background(), "stock.metrics.register.failed", map[string]any{"metric": "stock.adjustments", "error": err.Error()})
	}
	compensations, err := meter.Int64Counter(
		"stock.compensations",
		metric.WithDescription("Count of increments issued to undo a partially applied decrement batch"),
	)
	if err != nil {
		logger(context.Background(), "stock.metrics.register.failed", map[string]any{"metric": "stock.compensations", "error": err.Error()})
	}

	return &stockCoordinator{
		ledger:              deps.Ledger,
		compensationTimeout: timeout,
		tracer:              tracer,
		adjustments:         adjustments,
		compensations:       compensations,
		logger:              logger,
	}, nil
}

// AdjustStockForItems walks items in order, skipping off-catalog lines. A failed decrement
// stops the walk and increments back every earlier success in reverse order. Increments
// never compensate; their failures are collected and the walk continues.
func (c *stockCoordinator) AdjustStockForItems(ctx context.Context, items []StockLine, direction StockDirection) (StockAdjustmentResult, error) {
	if direction != domain.StockDecrement && direction != domain.StockIncrement {
		return StockAdjustmentResult{}, fmt.Errorf("%w: unknown direction %q", ErrStockInvalidInput, direction)
	}

	ctx, span := c.tracer.Start(ctx, "stock.adjust_items", trace.WithAttributes(
		attribute.String("stock.direction", string(direction)),
		attribute.Int("stock.items", len(items)),
	))
	defer span.End()

	result := StockAdjustmentResult{Direction: direction}
	var restockErrs []error

	for _, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			continue
		}

		adjustment := StockAdjustment{ProductID: productID, Quantity: item.Quantity, Direction: direction}
		var (
			ok  bool
			err error
		)
		if direction == domain.StockDecrement {
			ok, err = c.ledger.DecrementStock(ctx, productID, item.Quantity)
		} else {
			ok, err = c.ledger.IncrementStock(ctx, productID, item.Quantity)
		}
		adjustment.Success = ok && err == nil
		adjustment.Err = err
		result.Adjustments = append(result.Adjustments, adjustment)
		c.recordAdjustment(ctx, direction, adjustment.Success)

		if adjustment.Success {
			continue
		}

		if direction == domain.StockIncrement {
			cause := err
			if cause == nil {
				cause = fmt.Errorf("increment of %d rejected", item.Quantity)
			}
			restockErrs = append(restockErrs, fmt.Errorf("product %s: %w", productID, cause))
			c.logger(ctx, "stock.restock.failed", map[string]any{
				"productId": productID,
				"quantity":  item.Quantity,
				"error":     cause.Error(),
			})
			continue
		}

		cause := err
		if cause == nil {
			cause = fmt.Errorf("%w: product %s requested %d", ErrInsufficientStock, productID, item.Quantity)
		}
		c.logger(ctx, "stock.decrement.rejected", map[string]any{
			"productId": productID,
			"quantity":  item.Quantity,
			"error":     cause.Error(),
		})
		result.CompensationFailures = c.compensate(ctx, result.Adjustments[:len(result.Adjustments)-1])
		span.SetStatus(codes.Error, "decrement failed")
		span.RecordError(cause)
		return result, cause
	}

	if len(restockErrs) > 0 {
		err := fmt.Errorf("%w: %w", ErrRestockIncomplete, errors.Join(restockErrs...))
		span.SetStatus(codes.Error, "restock incomplete")
		span.RecordError(err)
		return result, err
	}

	result.Succeeded = true
	return result, nil
}

// compensate runs detached from the caller's cancellation so a timed-out request still
// returns the stock it took.
func (c *stockCoordinator) compensate(ctx context.Context, applied []StockAdjustment) []StockAdjustment {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
	defer cancel()

	var failures []StockAdjustment
	for i := len(applied) - 1; i >= 0; i-- {
		prior := applied[i]
		if !prior.Success {
			continue
		}
		ok, err := c.ledger.IncrementStock(compCtx, prior.ProductID, prior.Quantity)
		if c.compensations != nil {
			c.compensations.Add(compCtx, 1, metric.WithAttributes(attribute.Bool("success", ok && err == nil)))
		}
		if ok && err == nil {
			continue
		}
		if err == nil {
			err = fmt.Errorf("increment of %d rejected", prior.Quantity)
		}
		c.logger(ctx, "stock.compensation.failed", map[string]any{
			"productId": prior.ProductID,
			"quantity":  prior.Quantity,
			"error":     err.Error(),
		})
		failures = append(failures, StockAdjustment{
			ProductID: prior.ProductID,
			Quantity:  prior.Quantity,
			Direction: domain.StockIncrement,
			Err:       err,
		})
	}
	return failures
}

func (c *stockCoordinator) recordAdjustment(ctx context.Context, direction StockDirection, success bool) {
	if c.adjustments == nil {
		return
	}
	c.adjustments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", string(direction)),
		attribute.Bool("success", success),
	))
}

// stockLinesFromCart keeps only catalog-tracked items.
func stockLinesFromCart(items []CartItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		if !item.Tracked() {
			continue
		}
		lines = append(lines, StockLine{ProductID: strings.TrimSpace(item.ProductID), Quantity: item.Quantity})
	}
	return lines
}

// stockLinesFromOrderItems rebuilds stock lines from persisted items; off-catalog items carry no product.
func stockLinesFromOrderItems(items []OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil || strings.TrimSpace(*item.ProductID) == "" {
			continue
		}
		lines = append(lines, StockLine{ProductID: strings.TrimSpace(*item.ProductID), Quantity: item.Quantity})
	}
	return lines
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

func TestApplyStockDeltaConditional(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedProduct(domain.ProductStock{ProductID: "p1", Quantity: 6, Threshold: domain.DefaultLowStockThreshold})

	products := store.Products()

	stock, err := products.GetStock(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StockStatusInStock, stock.Status)

	stock, err = products.ApplyStockDelta(ctx, "p1", -1, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 5, stock.Quantity)
	assert.Equal(t, domain.StockStatusLowStock, stock.Status)

	_, err = products.ApplyStockDelta(ctx, "p1", -6, fixedNow)
	var stockErr *repositories.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, repositories.StockErrorInsufficient, stockErr.Code)

	stock, err = products.GetStock(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, stock.Quantity, "rejected decrement must leave quantity untouched")

	stock, err = products.ApplyStockDelta(ctx, "p1", -5, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StockStatusOutOfStock, stock.Status)

	_, err = products.ApplyStockDelta(ctx, "missing", 1, fixedNow)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())
}

func TestApplyStockDeltaConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedProduct(domain.ProductStock{ProductID: "p1", Quantity: 10})
	products := store.Products()

	const workers = 25
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		rejected  atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := products.ApplyStockDelta(ctx, "p1", -1, fixedNow)
			if err == nil {
				succeeded.Add(1)
				return
			}
			var stockErr *repositories.StockError
			if errors.As(err, &stockErr) && stockErr.Code == repositories.StockErrorInsufficient {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	stock, err := products.GetStock(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), succeeded.Load())
	assert.Equal(t, int64(workers-10), rejected.Load())
	assert.Equal(t, 0, stock.Quantity)
	assert.Equal(t, domain.StockStatusOutOfStock, stock.Status)
}

func TestRunInTxRevertsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Orders().Insert(ctx, domain.Order{ID: "o1", CreatedAt: fixedNow}))
		require.NoError(t, store.OrderItems().Insert(ctx, []domain.OrderItem{{ID: "i1", OrderID: "o1"}, {ID: "i2", OrderID: "o1"}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Orders().FindByID(ctx, "o1")
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())

	items, err := store.OrderItems().ListByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRunInTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		if err := store.Orders().Insert(ctx, domain.Order{ID: "o1", CreatedAt: fixedNow}); err != nil {
			return err
		}
		return store.OrderItems().Insert(ctx, []domain.OrderItem{{ID: "i1", OrderID: "o1"}})
	})
	require.NoError(t, err)

	items, err := store.OrderItems().ListByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	err = store.Orders().Insert(ctx, domain.Order{ID: "o1"})
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())
}

func TestOrderUpdateRejectsStaleStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	pending := domain.Order{ID: "o1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending, CreatedAt: fixedNow}
	require.NoError(t, store.Orders().Insert(ctx, pending))
	read := repositories.GuardFor(pending)

	cancelled := pending
	cancelled.Status = domain.OrderStatusCancelled
	require.NoError(t, store.Orders().Update(ctx, cancelled, read))

	confirmed := pending
	confirmed.Status = domain.OrderStatusConfirmed
	err := store.Orders().Update(ctx, confirmed, read)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())

	stored, err := store.Orders().FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)

	shipped := domain.ShippingStatusShipped
	stored.ShippingStatus = &shipped
	err = store.Orders().Update(ctx, stored, repositories.GuardFor(cancelled))
	require.NoError(t, err, "guard without shipping matches a stored order without shipping")
	err = store.Orders().Update(ctx, stored, repositories.GuardFor(cancelled))
	require.ErrorAs(t, err, &repoErr, "shipping axis is part of the guard")
	assert.True(t, repoErr.IsConflict())
}

func TestOrderListPaginatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for i := range 5 {
		status := domain.OrderStatusPending
		if i%2 == 1 {
			status = domain.OrderStatusCancelled
		}
		require.NoError(t, store.Orders().Insert(ctx, domain.Order{
			ID:         fmt.Sprintf("o%d", i),
			CustomerID: "c1",
			Status:     status,
			CreatedAt:  fixedNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Orders().Insert(ctx, domain.Order{ID: "other", CustomerID: "c2", CreatedAt: fixedNow}))

	first, err := store.Orders().List(ctx, repositories.OrderListFilter{
		CustomerID: "c1",
		Pagination: domain.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "o4", first.Items[0].ID)
	assert.Equal(t, "o3", first.Items[1].ID)
	require.NotEmpty(t, first.NextPageToken)

	second, err := store.Orders().List(ctx, repositories.OrderListFilter{
		CustomerID: "c1",
		Pagination: domain.Pagination{PageSize: 5, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 3)
	assert.Equal(t, "o2", second.Items[0].ID)
	assert.Empty(t, second.NextPageToken)

	cancelled, err := store.Orders().List(ctx, repositories.OrderListFilter{
		Status: []string{string(domain.OrderStatusCancelled)},
	})
	require.NoError(t, err)
	assert.Len(t, cancelled.Items, 2)
}

func TestCounterNext(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first, err := store.Counters().Next(ctx, "orders", 1)
	require.NoError(t, err)
	second, err := store.Counters().Next(ctx, "orders", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	_, err = store.Counters().Next(ctx, " ", 1)
	var counterErr *repositories.CounterError
	require.ErrorAs(t, err, &counterErr)

	_, err = store.Counters().Next(ctx, "orders", -2)
	require.ErrorAs(t, err, &counterErr)
	assert.Equal(t, "orders", counterErr.CounterID)
}

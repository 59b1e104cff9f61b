package stock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/cartstock/internal/domain/stock"
	"github.com/avoronov/cartstock/internal/repository"
)

func newLedger(t *testing.T, records ...stock.Record) (*stock.Ledger, *repository.MemoryStockRepository) {
	t.Helper()

	repo := repository.NewMemoryStockRepository()
	for i := range records {
		require.NoError(t, repo.Create(context.Background(), &records[i]))
	}
	return stock.NewLedger(repo), repo
}

func TestLedger_GetQuantity(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 7})

	qty, err := ledger.GetQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, qty)

	_, err = ledger.GetQuantity(context.Background(), "missing")
	require.ErrorIs(t, err, stock.ErrNotFound)
}

func TestLedger_IsAvailable(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 5})

	ok, err := ledger.IsAvailable(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.IsAvailable(context.Background(), "p1", 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_Increase_InvalidAmount(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 5})

	for _, amount := range []int{0, -3} {
		_, err := ledger.Increase(context.Background(), "p1", amount)
		require.ErrorIs(t, err, stock.ErrInvalidAmount)
	}
}

func TestLedger_Decrease_InvalidAmount(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 5})

	for _, amount := range []int{0, -1} {
		_, err := ledger.Decrease(context.Background(), "p1", amount)
		require.ErrorIs(t, err, stock.ErrInvalidAmount)
	}
}

func TestLedger_Decrease_Insufficient(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 5})

	_, err := ledger.Decrease(context.Background(), "p1", 6)

	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "p1", insufficient.ProductID)
	assert.Equal(t, 6, insufficient.Requested)

	// The failed decrement left the quantity untouched.
	qty, err := ledger.GetQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
}

func TestLedger_DecreaseIncrease_RoundTrip(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 10})

	_, err := ledger.Decrease(context.Background(), "p1", 4)
	require.NoError(t, err)
	rec, err := ledger.Increase(context.Background(), "p1", 4)
	require.NoError(t, err)

	assert.Equal(t, 10, rec.Quantity)
}

func TestLedger_Increase_BumpsRestockTime(t *testing.T) {
	ledger, repo := newLedger(t, stock.Record{ProductID: "p1", Quantity: 1})

	before, err := repo.GetByProduct(context.Background(), "p1")
	require.NoError(t, err)

	rec, err := ledger.Increase(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Quantity)
	assert.False(t, rec.LastRestockedAt.Before(before.LastRestockedAt))
}

func TestLedger_ConcurrentDecrease_ExactlyOneWins(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 10})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = ledger.Decrease(context.Background(), "p1", 6)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *stock.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 1, succeeded, "exactly one decrement of 6 against 10 may succeed")

	qty, err := ledger.GetQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, qty)
}

func TestLedger_QuantityNeverNegative(t *testing.T) {
	ledger, _ := newLedger(t, stock.Record{ProductID: "p1", Quantity: 50})

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.Decrease(context.Background(), "p1", 3)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ledger.Increase(context.Background(), "p1", 1)
		}()
	}
	wg.Wait()

	qty, err := ledger.GetQuantity(context.Background(), "p1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, qty, 0)
}

func TestRecord_IsLowStock(t *testing.T) {
	rec := stock.Record{ProductID: "p1", Quantity: 10, LowStockThreshold: 10}
	assert.True(t, rec.IsLowStock())

	rec.Quantity = 11
	assert.False(t, rec.IsLowStock())
}

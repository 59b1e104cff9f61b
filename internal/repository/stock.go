package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronov/cartstock/internal/domain/stock"
)

const (
	getStockSQL = `SELECT product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at
		FROM stock_records WHERE product_id = $1`

	getStocksSQL = `SELECT product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at
		FROM stock_records WHERE product_id = ANY($1)`

	listStockSQL = `SELECT product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at
		FROM stock_records ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	listLowStockSQL = `SELECT product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at
		FROM stock_records WHERE quantity <= low_stock_threshold
		ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	createStockSQL = `INSERT INTO stock_records (product_id, quantity, low_stock_threshold, warehouse)
		VALUES ($1, $2, $3, $4)`

	updateStockSQL = `UPDATE stock_records
		SET quantity = $2, low_stock_threshold = $3, warehouse = $4, updated_at = now()
		WHERE product_id = $1`

	increaseStockSQL = `UPDATE stock_records
		SET quantity = quantity + $2, last_restocked_at = now(), updated_at = now()
		WHERE product_id = $1
		RETURNING product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at`

	// The quantity >= $2 guard makes the decrement a compare-and-swap: two
	// racing decrements serialize on the row lock and the loser re-evaluates
	// the guard, so the stored quantity can never go negative.
	decreaseStockSQL = `UPDATE stock_records
		SET quantity = quantity - $2, updated_at = now()
		WHERE product_id = $1 AND quantity >= $2
		RETURNING product_id, quantity, low_stock_threshold, warehouse, last_restocked_at, updated_at`

	stockExistsSQL = `SELECT EXISTS (SELECT 1 FROM stock_records WHERE product_id = $1)`
)

var _ stock.Repository = (*StockRepository)(nil)

// StockRepository implements stock.Repository backed by PostgreSQL. The
// conditional UPDATE statements provide the per-product exclusive update
// path the ledger requires.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// GetByProduct returns the stock record for a product.
func (r *StockRepository) GetByProduct(ctx context.Context, productID string) (*stock.Record, error) {
	rows, err := r.pool.Query(ctx, getStockSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting stock for %q: %w", productID, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanStockRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stock.ErrNotFound
		}
		return nil, fmt.Errorf("getting stock for %q: %w", productID, err)
	}
	return &rec, nil
}

// GetByProducts returns stock records matching any of the given product IDs.
// Missing products are simply absent from the result.
func (r *StockRepository) GetByProducts(ctx context.Context, productIDs []string) ([]stock.Record, error) {
	rows, err := r.pool.Query(ctx, getStocksSQL, productIDs)
	if err != nil {
		return nil, fmt.Errorf("getting stock records: %w", err)
	}
	return pgx.CollectRows(rows, scanStockRecord)
}

// List returns stock records sorted by most recently updated.
func (r *StockRepository) List(ctx context.Context, filter stock.ListFilter) ([]stock.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := listStockSQL
	if filter.LowStockOnly {
		query = listLowStockSQL
	}

	rows, err := r.pool.Query(ctx, query, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing stock records: %w", err)
	}
	return pgx.CollectRows(rows, scanStockRecord)
}

// Create persists a new stock record.
func (r *StockRepository) Create(ctx context.Context, rec *stock.Record) error {
	_, err := r.pool.Exec(ctx, createStockSQL,
		rec.ProductID, rec.Quantity, rec.LowStockThreshold, rec.Warehouse)
	if err != nil {
		return fmt.Errorf("creating stock record for %q: %w", rec.ProductID, err)
	}
	return nil
}

// Update overwrites quantity, threshold, and warehouse for a record.
func (r *StockRepository) Update(ctx context.Context, rec *stock.Record) error {
	tag, err := r.pool.Exec(ctx, updateStockSQL,
		rec.ProductID, rec.Quantity, rec.LowStockThreshold, rec.Warehouse)
	if err != nil {
		return fmt.Errorf("updating stock record for %q: %w", rec.ProductID, err)
	}
	if tag.RowsAffected() == 0 {
		return stock.ErrNotFound
	}
	return nil
}

// IncreaseQuantity atomically adds amount and bumps the restock timestamp.
func (r *StockRepository) IncreaseQuantity(ctx context.Context, productID string, amount int) (*stock.Record, error) {
	rows, err := r.pool.Query(ctx, increaseStockSQL, productID, amount)
	if err != nil {
		return nil, fmt.Errorf("increasing stock for %q: %w", productID, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanStockRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stock.ErrNotFound
		}
		return nil, fmt.Errorf("increasing stock for %q: %w", productID, err)
	}
	return &rec, nil
}

// DecreaseQuantity atomically subtracts amount via a conditional update.
// A zero-row result is disambiguated into ErrNotFound or insufficient stock.
func (r *StockRepository) DecreaseQuantity(ctx context.Context, productID string, amount int) (*stock.Record, error) {
	rows, err := r.pool.Query(ctx, decreaseStockSQL, productID, amount)
	if err != nil {
		return nil, fmt.Errorf("decreasing stock for %q: %w", productID, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanStockRecord)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("decreasing stock for %q: %w", productID, err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, stockExistsSQL, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking stock record for %q: %w", productID, err)
	}
	if !exists {
		return nil, stock.ErrNotFound
	}
	return nil, &stock.InsufficientStockError{ProductID: productID, Requested: amount}
}

// DecreaseAll applies every decrement in one transaction. Row locks are
// taken in ascending ProductID order so concurrent batches over overlapping
// products cannot deadlock; the first failed guard rolls the whole batch
// back.
func (r *StockRepository) DecreaseAll(ctx context.Context, decs []stock.Decrement) error {
	if len(decs) == 0 {
		return nil
	}

	ordered := make([]stock.Decrement, len(decs))
	copy(ordered, decs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning stock transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range ordered {
		tag, err := tx.Exec(ctx, `UPDATE stock_records
			SET quantity = quantity - $2, updated_at = now()
			WHERE product_id = $1 AND quantity >= $2`, d.ProductID, d.Amount)
		if err != nil {
			return fmt.Errorf("decreasing stock for %q: %w", d.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &stock.InsufficientStockError{ProductID: d.ProductID, Requested: d.Amount}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing stock transaction: %w", err)
	}
	return nil
}

func scanStockRecord(row pgx.CollectableRow) (stock.Record, error) {
	var rec stock.Record
	err := row.Scan(
		&rec.ProductID, &rec.Quantity, &rec.LowStockThreshold,
		&rec.Warehouse, &rec.LastRestockedAt, &rec.UpdatedAt,
	)
	return rec, err
}

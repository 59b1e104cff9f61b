package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avoronov/cartstock/internal/domain/stock"
)

var _ stock.Repository = (*MemoryStockRepository)(nil)

// MemoryStockRepository implements stock.Repository with in-memory storage.
// A single mutex serializes all mutations, which gives the same per-product
// linearizability and all-or-nothing batch semantics as the PostgreSQL
// implementation. Used by unit tests and local development.
type MemoryStockRepository struct {
	mu      sync.RWMutex
	records map[string]*stock.Record
}

// NewMemoryStockRepository creates an empty in-memory stock repository.
func NewMemoryStockRepository() *MemoryStockRepository {
	return &MemoryStockRepository{records: make(map[string]*stock.Record)}
}

// GetByProduct returns a copy of the stock record for a product.
func (r *MemoryStockRepository) GetByProduct(_ context.Context, productID string) (*stock.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[productID]
	if !ok {
		return nil, stock.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetByProducts returns copies of the records matching the given IDs.
// Missing products are absent from the result.
func (r *MemoryStockRepository) GetByProducts(_ context.Context, productIDs []string) ([]stock.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]stock.Record, 0, len(productIDs))
	for _, id := range productIDs {
		if rec, ok := r.records[id]; ok {
			result = append(result, *rec)
		}
	}
	return result, nil
}

// List returns records sorted by most recently updated.
func (r *MemoryStockRepository) List(_ context.Context, filter stock.ListFilter) ([]stock.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]stock.Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.LowStockOnly && !rec.IsLowStock() {
			continue
		}
		all = append(all, *rec)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Create stores a new record, filling in defaults and timestamps.
func (r *MemoryStockRepository) Create(_ context.Context, rec *stock.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	if cp.Warehouse == "" {
		cp.Warehouse = stock.DefaultWarehouse
	}
	now := time.Now()
	cp.LastRestockedAt = now
	cp.UpdatedAt = now
	r.records[cp.ProductID] = &cp
	return nil
}

// Update overwrites quantity, threshold, and warehouse for a record.
func (r *MemoryStockRepository) Update(_ context.Context, rec *stock.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[rec.ProductID]
	if !ok {
		return stock.ErrNotFound
	}
	stored.Quantity = rec.Quantity
	stored.LowStockThreshold = rec.LowStockThreshold
	stored.Warehouse = rec.Warehouse
	stored.UpdatedAt = time.Now()
	return nil
}

// IncreaseQuantity atomically adds amount and bumps the restock timestamp.
func (r *MemoryStockRepository) IncreaseQuantity(_ context.Context, productID string, amount int) (*stock.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[productID]
	if !ok {
		return nil, stock.ErrNotFound
	}
	now := time.Now()
	rec.Quantity += amount
	rec.LastRestockedAt = now
	rec.UpdatedAt = now
	cp := *rec
	return &cp, nil
}

// DecreaseQuantity atomically subtracts amount, never driving the stored
// quantity negative.
func (r *MemoryStockRepository) DecreaseQuantity(_ context.Context, productID string, amount int) (*stock.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[productID]
	if !ok {
		return nil, stock.ErrNotFound
	}
	if amount > rec.Quantity {
		return nil, &stock.InsufficientStockError{ProductID: productID, Requested: amount}
	}
	rec.Quantity -= amount
	rec.UpdatedAt = time.Now()
	cp := *rec
	return &cp, nil
}

// DecreaseAll validates the whole batch under the lock, then applies it.
// Either every decrement takes effect or none do.
func (r *MemoryStockRepository) DecreaseAll(_ context.Context, decs []stock.Decrement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range decs {
		rec, ok := r.records[d.ProductID]
		if !ok || d.Amount > rec.Quantity {
			return &stock.InsufficientStockError{ProductID: d.ProductID, Requested: d.Amount}
		}
	}

	now := time.Now()
	for _, d := range decs {
		rec := r.records[d.ProductID]
		rec.Quantity -= d.Amount
		rec.UpdatedAt = now
	}
	return nil
}

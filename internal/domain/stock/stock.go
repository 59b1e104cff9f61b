package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for stock ledger operations.
var (
	// ErrNotFound is returned when no stock record exists for a product.
	ErrNotFound = errors.New("stock record not found")
	// ErrInvalidAmount is returned when a mutation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
)

// InsufficientStockError indicates a decrement was larger than the available
// quantity for a product.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// DefaultLowStockThreshold is applied to records created without an explicit
// threshold.
const DefaultLowStockThreshold = 10

// DefaultWarehouse is applied to records created without an explicit
// warehouse name.
const DefaultWarehouse = "Main Warehouse"

// Record holds the stock state for a single product. Quantity never goes
// negative; every mutation flows through Repository primitives that enforce
// the bound atomically.
type Record struct {
	ProductID         string
	Quantity          int
	LowStockThreshold int
	Warehouse         string
	LastRestockedAt   time.Time
	UpdatedAt         time.Time
}

// IsLowStock reports whether the quantity is at or below the configured
// threshold. Computed on read, never stored.
func (r Record) IsLowStock() bool {
	return r.Quantity <= r.LowStockThreshold
}

// Decrement is a single (product, amount) entry in a batch decrement.
type Decrement struct {
	ProductID string
	Amount    int
}

// ListFilter narrows and pages List results.
type ListFilter struct {
	// LowStockOnly restricts results to records at or below their threshold.
	LowStockOnly bool
	Limit        int
	Offset       int
}

// Repository defines persistence operations for stock records.
//
// IncreaseQuantity, DecreaseQuantity, and DecreaseAll must be linearizable
// per product: two concurrent decrements against the same product must never
// both succeed when their combined amount exceeds the available quantity.
// DecreaseAll must be all-or-nothing across its whole batch and must acquire
// per-product exclusivity in ascending ProductID order so that overlapping
// batches cannot deadlock.
type Repository interface {
	GetByProduct(ctx context.Context, productID string) (*Record, error)
	GetByProducts(ctx context.Context, productIDs []string) ([]Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error

	// IncreaseQuantity atomically adds amount to the product's quantity and
	// bumps LastRestockedAt. Returns ErrNotFound for unknown products.
	IncreaseQuantity(ctx context.Context, productID string, amount int) (*Record, error)

	// DecreaseQuantity atomically subtracts amount, failing with
	// *InsufficientStockError when amount exceeds the stored quantity and
	// ErrNotFound for unknown products.
	DecreaseQuantity(ctx context.Context, productID string, amount int) (*Record, error)

	// DecreaseAll applies every decrement as a single unit. On failure no
	// decrement takes effect and the error identifies the failing product
	// (*InsufficientStockError; unknown products count as insufficient).
	DecreaseAll(ctx context.Context, decs []Decrement) error
}

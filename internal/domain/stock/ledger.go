package stock

import (
	"context"

	"github.com/go-faster/errors"
)

// Ledger owns per-product stock levels. It validates arguments and delegates
// the atomic quantity updates to the Repository, which provides the
// per-product exclusive update path.
type Ledger struct {
	records Repository
}

// NewLedger creates a Ledger backed by the given repository.
func NewLedger(records Repository) *Ledger {
	return &Ledger{records: records}
}

// GetQuantity returns the current quantity for a product.
func (l *Ledger) GetQuantity(ctx context.Context, productID string) (int, error) {
	rec, err := l.records.GetByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return rec.Quantity, nil
}

// IsAvailable reports whether at least requested units are in stock.
func (l *Ledger) IsAvailable(ctx context.Context, productID string, requested int) (bool, error) {
	rec, err := l.records.GetByProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return requested <= rec.Quantity, nil
}

// Increase adds amount units to the product's stock and records the restock
// time. Amount must be positive.
func (l *Ledger) Increase(ctx context.Context, productID string, amount int) (*Record, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := l.records.IncreaseQuantity(ctx, productID, amount)
	if err != nil {
		return nil, errors.Wrapf(err, "increase stock for %s", productID)
	}
	return rec, nil
}

// Decrease subtracts amount units from the product's stock. Amount must be
// positive; the subtraction is atomic and fails with
// *InsufficientStockError rather than ever driving quantity negative.
func (l *Ledger) Decrease(ctx context.Context, productID string, amount int) (*Record, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	rec, err := l.records.DecreaseQuantity(ctx, productID, amount)
	if err != nil {
		var insufficient *InsufficientStockError
		if errors.Is(err, ErrNotFound) || errors.As(err, &insufficient) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "decrease stock for %s", productID)
	}
	return rec, nil
}

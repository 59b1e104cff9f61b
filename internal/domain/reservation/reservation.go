package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"

	"github.com/avoronov/cartstock/internal/domain/stock"
)

// ErrEmptyDemands is returned when a demand set contains no entries.
var ErrEmptyDemands = errors.New("demands required")

// InvalidDemandError indicates a demand with a non-positive quantity.
type InvalidDemandError struct {
	ProductID string
}

func (e *InvalidDemandError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// RejectedError indicates a demand set was refused because one product had
// insufficient stock. FailingProductID identifies the first product (in
// input order for availability checks) that could not be satisfied.
type RejectedError struct {
	FailingProductID string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.FailingProductID)
}

// Demand is a requested (product, quantity) pair to be validated or reserved
// against stock.
type Demand struct {
	ProductID string
	Quantity  int
}

// Manager admits and commits multi-product stock demands as a single logical
// unit. Commits are all-or-nothing: either every demand in the set is
// decremented or none are.
type Manager struct {
	records stock.Repository
}

// NewManager creates a Manager backed by the given stock repository.
func NewManager(records stock.Repository) *Manager {
	return &Manager{records: records}
}

// CheckAvailability evaluates each demand against current stock and returns
// a *RejectedError naming the first insufficient product in input order.
// The result is advisory: stock may be consumed concurrently between this
// check and a later ReserveAll, so only ReserveAll is authoritative.
func (m *Manager) CheckAvailability(ctx context.Context, demands []Demand) error {
	if err := validateDemands(demands); err != nil {
		return err
	}

	ids := make([]string, len(demands))
	for i, d := range demands {
		ids[i] = d.ProductID
	}

	records, err := m.records.GetByProducts(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get stock records")
	}

	available := make(map[string]int, len(records))
	for _, rec := range records {
		available[rec.ProductID] = rec.Quantity
	}

	// Merged view per product: duplicate demands for the same product must
	// jointly fit.
	requested := make(map[string]int, len(demands))
	for _, d := range demands {
		requested[d.ProductID] += d.Quantity
	}

	for _, d := range demands {
		qty, ok := available[d.ProductID]
		if !ok || requested[d.ProductID] > qty {
			return &RejectedError{FailingProductID: d.ProductID}
		}
	}

	return nil
}

// ReserveAll re-validates and commits every demand as one unit. If any
// single decrement would fail, no decrement takes effect and the failing
// product is reported via *RejectedError.
func (m *Manager) ReserveAll(ctx context.Context, demands []Demand) error {
	if err := validateDemands(demands); err != nil {
		return err
	}

	decs := mergeDemands(demands)

	if err := m.records.DecreaseAll(ctx, decs); err != nil {
		var insufficient *stock.InsufficientStockError
		if errors.As(err, &insufficient) {
			return &RejectedError{FailingProductID: insufficient.ProductID}
		}
		return errors.Wrap(err, "decrease stock")
	}

	return nil
}

func validateDemands(demands []Demand) error {
	if len(demands) == 0 {
		return ErrEmptyDemands
	}
	for _, d := range demands {
		if d.Quantity <= 0 {
			return &InvalidDemandError{ProductID: d.ProductID}
		}
	}
	return nil
}

// mergeDemands collapses duplicate products and orders the result by
// ProductID so overlapping concurrent batches acquire their per-product
// locks in the same order.
func mergeDemands(demands []Demand) []stock.Decrement {
	merged := make(map[string]int, len(demands))
	for _, d := range demands {
		merged[d.ProductID] += d.Quantity
	}

	decs := make([]stock.Decrement, 0, len(merged))
	for id, qty := range merged {
		decs = append(decs, stock.Decrement{ProductID: id, Amount: qty})
	}
	sort.Slice(decs, func(i, j int) bool { return decs[i].ProductID < decs[j].ProductID })

	return decs
}

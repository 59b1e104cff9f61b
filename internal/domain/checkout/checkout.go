package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avoronov/cartstock/internal/domain/cart"
	"github.com/avoronov/cartstock/internal/domain/reservation"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no
// items.
var ErrEmptyCart = errors.New("cart is empty")

// CommitRaceError indicates the authoritative reservation commit was
// rejected even though the advisory availability check passed: a concurrent
// checkout consumed the stock in between. The cart is untouched, so the
// caller can retry or adjust quantities.
type CommitRaceError struct {
	FailingProductID string
}

func (e *CommitRaceError) Error() string {
	return fmt.Sprintf("stock for product %s was consumed concurrently", e.FailingProductID)
}

// PartialCommitError indicates the reservation committed but the cart could
// not be cleared afterwards. Stock is already decremented while the cart
// still holds the items; Result carries the committed snapshot so the state
// can be reconciled instead of silently losing the reservation.
type PartialCommitError struct {
	Result *Result
	Err    error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("reservation %s committed but cart clear failed: %v", e.Result.ID, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// Result is the ephemeral snapshot of a completed checkout. It is returned
// to the caller and not persisted here; order persistence belongs to a
// downstream system.
type Result struct {
	ID          string
	UserID      string
	Items       []cart.Item
	TotalAmount decimal.Decimal
	CompletedAt time.Time
}

// Orchestrator drives the verify-then-commit checkout transition: validate
// the cart, advisory-check availability, commit the reservation
// all-or-nothing, then clear the cart.
type Orchestrator struct {
	carts        *cart.Store
	reservations *reservation.Manager
	now          func() time.Time
}

// NewOrchestrator creates a checkout Orchestrator.
func NewOrchestrator(carts *cart.Store, reservations *reservation.Manager) *Orchestrator {
	return &Orchestrator{
		carts:        carts,
		reservations: reservations,
		now:          time.Now,
	}
}

// Checkout performs an all-or-nothing checkout for the user's cart.
//
// On any rejection the cart is untouched. A *reservation.RejectedError
// means the advisory pre-check failed; a *CommitRaceError means stock was
// consumed between pre-check and commit. A *PartialCommitError means the
// reservation committed but the cart clear failed and must be reconciled.
func (o *Orchestrator) Checkout(ctx context.Context, userID string) (*Result, error) {
	c, err := o.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	demands := make([]reservation.Demand, len(c.Items))
	for i, it := range c.Items {
		demands[i] = reservation.Demand{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	if err := o.reservations.CheckAvailability(ctx, demands); err != nil {
		return nil, err
	}

	// The pre-check above is advisory; ReserveAll is the sole authority.
	if err := o.reservations.ReserveAll(ctx, demands); err != nil {
		var rejected *reservation.RejectedError
		if errors.As(err, &rejected) {
			return nil, &CommitRaceError{FailingProductID: rejected.FailingProductID}
		}
		return nil, errors.Wrap(err, "reserve stock")
	}

	items := make([]cart.Item, len(c.Items))
	copy(items, c.Items)
	result := &Result{
		ID:          uuid.New().String(),
		UserID:      userID,
		Items:       items,
		TotalAmount: c.TotalAmount,
		CompletedAt: o.now(),
	}

	if _, err := o.carts.Clear(ctx, userID); err != nil {
		return nil, &PartialCommitError{Result: result, Err: err}
	}

	return result, nil
}

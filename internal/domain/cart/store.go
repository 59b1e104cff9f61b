package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/avoronov/cartstock/internal/domain/catalog"
	"github.com/avoronov/cartstock/internal/domain/stock"
)

// Store coordinates cart mutations with the catalog (price snapshots,
// active-product checks) and the stock ledger (advisory availability checks
// on add). Stock is never mutated here; checkout owns that.
type Store struct {
	carts    Repository
	products catalog.Repository
	stocks   stock.Repository
}

// NewStore creates a cart Store with the required collaborators.
func NewStore(carts Repository, products catalog.Repository, stocks stock.Repository) *Store {
	return &Store{
		carts:    carts,
		products: products,
		stocks:   stocks,
	}
}

// Get returns the user's cart, lazily creating an empty one on first
// access. Creation is idempotent: concurrent first accesses for the same
// user converge on a single cart.
func (s *Store) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "get cart")
	}

	c = New(userID)
	if err := s.carts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	// Re-read so a concurrent creator's cart is returned rather than our
	// empty candidate.
	c, err = s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "reload cart")
	}
	return c, nil
}

// AddItem validates the product against the catalog, snapshots its price,
// and merges qty into the user's cart. Unknown or inactive products fail
// with catalog.ErrNotFound; an advisory stock check rejects quantities that
// are already known to be unavailable.
func (s *Store) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, catalog.ErrNotFound
	}

	rec, err := s.stocks.GetByProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, stock.ErrNotFound) {
			return nil, &stock.InsufficientStockError{ProductID: productID, Requested: qty}
		}
		return nil, errors.Wrap(err, "check stock")
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Advisory only: the merged line must fit current stock, but checkout
	// re-validates authoritatively.
	newQty := qty
	if existing := c.Item(productID); existing != nil {
		newQty += existing.Quantity
	}
	if newQty > rec.Quantity {
		return nil, &stock.InsufficientStockError{ProductID: productID, Requested: newQty}
	}

	c.AddItem(productID, qty, p.Price)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// UpdateItemQuantity sets a line's quantity exactly. Non-positive qty
// removes the line; an absent line fails with *ItemNotFoundError.
func (s *Store) UpdateItemQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.SetItemQuantity(productID, qty); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveItem drops a line from the cart. Removing an absent product is a
// no-op.
func (s *Store) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.RemoveItem(productID)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear empties the user's cart.
func (s *Store) Clear(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

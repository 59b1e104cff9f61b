package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	// ErrNotFound is returned by repositories when no cart exists for a user.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidQuantity is returned when an added quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// ItemNotFoundError indicates an update targeted a product that is not in
// the cart.
type ItemNotFoundError struct {
	ProductID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("product %s not in cart", e.ProductID)
}

// Item is a single cart line. UnitPrice is a snapshot captured when the item
// was added; it is not re-fetched on later reads.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Cart holds one user's items and the derived total. Items are ordered and
// unique by product; re-adding a product merges quantities. TotalAmount is
// recomputed from the item list on every mutation, never patched
// incrementally.
type Cart struct {
	UserID      string
	Items       []Item
	TotalAmount decimal.Decimal
	UpdatedAt   time.Time
}

// New returns an empty cart for the given user.
func New(userID string) *Cart {
	return &Cart{
		UserID:      userID,
		TotalAmount: decimal.Zero,
	}
}

// AddItem merges qty into an existing line for the product or appends a new
// line with the given price snapshot.
func (c *Cart) AddItem(productID string, qty int, unitPrice decimal.Decimal) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			c.recompute()
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty, UnitPrice: unitPrice})
	c.recompute()
}

// SetItemQuantity sets a line's quantity exactly. A non-positive qty removes
// the line; targeting an absent product returns *ItemNotFoundError.
func (c *Cart) SetItemQuantity(productID string, qty int) error {
	if qty <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			c.recompute()
			return nil
		}
	}
	return &ItemNotFoundError{ProductID: productID}
}

// RemoveItem drops the line for the product. Absent products are a no-op.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	c.recompute()
}

// Clear empties the cart and resets the total to zero.
func (c *Cart) Clear() {
	c.Items = nil
	c.recompute()
}

// Item returns the line for the product, or nil when absent.
func (c *Cart) Item(productID string) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) recompute() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.TotalAmount = total
}

// Repository defines persistence operations for carts. Save replaces the
// stored item list and total as one unit so a reader never observes a stale
// total alongside new items.
type Repository interface {
	// GetByUser returns the user's cart or ErrNotFound.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// Create persists a new empty cart. Creating a cart that already exists
	// is not an error; the existing cart wins.
	Create(ctx context.Context, c *Cart) error
	// Save replaces the cart's items and total.
	Save(ctx context.Context, c *Cart) error
}

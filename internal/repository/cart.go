package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avoronov/cartstock/internal/domain/cart"
)

const (
	getCartSQL = `SELECT user_id, total_amount, updated_at FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT product_id, quantity, unit_price
		FROM cart_items WHERE user_id = $1 ORDER BY position`

	// ON CONFLICT DO NOTHING makes lazy creation idempotent under
	// concurrent first access.
	createCartSQL = `INSERT INTO carts (user_id, total_amount)
		VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`

	updateCartSQL = `UPDATE carts SET total_amount = $2, updated_at = now() WHERE user_id = $1`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, position, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Items and
// the derived total are replaced inside one transaction so a concurrent
// reader never sees a stale total next to fresh items.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByUser returns the user's cart with its items, or cart.ErrNotFound.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}

	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.UserID, &c.TotalAmount, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userID, err)
	}

	c.Items = items
	return c, nil
}

// Create persists an empty cart for the user. An already-existing cart is
// left untouched.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	_, err := r.pool.Exec(ctx, createCartSQL, c.UserID, c.TotalAmount)
	if err != nil {
		return fmt.Errorf("creating cart for %q: %w", c.UserID, err)
	}
	return nil
}

// Save replaces the cart's stored items and total as one unit.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning cart transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateCartSQL, c.UserID, c.TotalAmount)
	if err != nil {
		return fmt.Errorf("updating cart for %q: %w", c.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}

	if _, err := tx.Exec(ctx, deleteCartItemsSQL, c.UserID); err != nil {
		return fmt.Errorf("clearing cart items for %q: %w", c.UserID, err)
	}

	for i, it := range c.Items {
		if _, err := tx.Exec(ctx, insertCartItemSQL,
			c.UserID, i, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("inserting cart item %q for %q: %w", it.ProductID, c.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cart transaction: %w", err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it    cart.Item
		price decimal.Decimal
	)
	err := row.Scan(&it.ProductID, &it.Quantity, &price)
	it.UnitPrice = price
	return it, err
}

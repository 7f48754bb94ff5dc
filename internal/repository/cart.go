package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
)

const (
	getActiveCartSQL = `SELECT id, buyer_id, items, total_price, total_quantity, status
		FROM carts WHERE buyer_id = $1 AND status = 'active'`

	insertCartSQL = `INSERT INTO carts (id, buyer_id, items, total_price, total_quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateCartSQL = `UPDATE carts SET items = $2, total_price = $3, total_quantity = $4,
		status = $5, updated_at = now() WHERE id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line
// items live in a JSONB column; totals are stored denormalized alongside.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetActive returns the buyer's single active cart.
func (r *CartRepository) GetActive(ctx context.Context, buyerID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getActiveCartSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("getting active cart for %q: %w", buyerID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNoActiveCart
		}
		return nil, fmt.Errorf("getting active cart for %q: %w", buyerID, err)
	}
	return &c, nil
}

// Create persists a new cart.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertCartSQL,
		c.ID, c.BuyerID, items, c.TotalPrice, c.TotalQuantity, c.Status,
	)
	if err != nil {
		return fmt.Errorf("creating cart %q: %w", c.ID, err)
	}
	return nil
}

// Update persists items, totals, and status of an existing cart.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	_, err = r.pool.Exec(ctx, updateCartSQL,
		c.ID, items, c.TotalPrice, c.TotalQuantity, c.Status,
	)
	if err != nil {
		return fmt.Errorf("updating cart %q: %w", c.ID, err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c     cart.Cart
		items []byte
		total decimal.Decimal
	)
	err := row.Scan(&c.ID, &c.BuyerID, &items, &total, &c.TotalQuantity, &c.Status)
	if err != nil {
		return c, err
	}
	c.TotalPrice = total
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return c, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	return c, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kivumart/kivumart-api/internal/domain/product"
	"github.com/kivumart/kivumart-api/internal/domain/wishlist"
)

const (
	addWishlistSQL = `INSERT INTO wishlists (buyer_id, product_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	removeWishlistSQL = `DELETE FROM wishlists WHERE buyer_id = $1 AND product_id = $2`

	listWishlistSQL = `SELECT p.id, p.seller_id, p.name, p.price, p.quantity, p.status,
		p.expiry_date, p.expired, p.images, p.created_at
		FROM wishlists w JOIN products p ON p.id = w.product_id
		WHERE w.buyer_id = $1 ORDER BY w.created_at DESC`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// Add puts a product on the buyer's wishlist. Adding twice is a no-op.
func (r *WishlistRepository) Add(ctx context.Context, buyerID, productID string) error {
	_, err := r.pool.Exec(ctx, addWishlistSQL, buyerID, productID)
	if err != nil {
		return fmt.Errorf("adding product %q to wishlist: %w", productID, err)
	}
	return nil
}

// Remove deletes a product from the buyer's wishlist.
func (r *WishlistRepository) Remove(ctx context.Context, buyerID, productID string) error {
	tag, err := r.pool.Exec(ctx, removeWishlistSQL, buyerID, productID)
	if err != nil {
		return fmt.Errorf("removing product %q from wishlist: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrNotInWishlist
	}
	return nil
}

// List returns the wishlisted products, most recently added first.
func (r *WishlistRepository) List(ctx context.Context, buyerID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist for %q: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

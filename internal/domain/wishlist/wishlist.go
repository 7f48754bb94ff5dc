package wishlist

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/kivumart/kivumart-api/internal/domain/product"
)

// ErrNotInWishlist is returned when removing a product that was never added.
var ErrNotInWishlist = errors.New("product not in wishlist")

// Repository defines persistence operations for per-buyer wishlists.
// A wishlist is a set of product ids; adding twice is idempotent.
type Repository interface {
	Add(ctx context.Context, buyerID, productID string) error
	Remove(ctx context.Context, buyerID, productID string) error
	List(ctx context.Context, buyerID string) ([]product.Product, error)
}

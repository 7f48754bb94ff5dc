package collection

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested collection does not exist.
	ErrNotFound = errors.New("collection not found")
	// ErrDuplicate is returned when a seller already has a collection
	// with the same name.
	ErrDuplicate = errors.New("collection already exists")
)

// Collection groups a seller's products under a storefront heading.
type Collection struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Repository defines persistence operations for collections.
type Repository interface {
	Create(ctx context.Context, c *Collection) error
	GetByID(ctx context.Context, id string) (*Collection, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Collection, error)
}

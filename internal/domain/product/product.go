package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates product availability states.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicate is returned when a seller already has a product with
	// the same name.
	ErrDuplicate = errors.New("product already exists")
)

// Product is a seller-owned inventory unit.
type Product struct {
	ID         string
	SellerID   string
	Name       string
	Price      decimal.Decimal
	Quantity   int
	Status     Status
	ExpiryDate *time.Time
	Expired    bool
	Images     []string
	CreatedAt  time.Time
}

// Available reports whether the product can currently be sold.
func (p *Product) Available() bool {
	return p.Status == StatusAvailable && !p.Expired
}

// Repository defines persistence operations for the product catalog.
// Stock decrements are not exposed here: they happen atomically with
// order status changes inside the order repository's transactions.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	// MarkExpired flags every product whose expiry date has passed as
	// expired and unavailable, returning the number of rows affected.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates cart lifecycle states.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sentinel errors for cart operations.
var (
	// ErrNoActiveCart is returned when a buyer has no active cart.
	ErrNoActiveCart = errors.New("no active cart")
	// ErrItemNotFound is returned when a productId is not present in the cart.
	ErrItemNotFound = errors.New("product not in cart")
)

// OutOfStockError indicates the requested quantity exceeds current stock.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidQuantityError indicates a non-positive requested quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// LineItem is a single product entry in a cart. Price is captured from the
// product at the moment the item is first added and is not repriced later.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Images    []string        `json:"images,omitempty"`
}

// Cart is a buyer's active shopping cart. A buyer has at most one cart in
// StatusActive at a time (enforced by a partial unique index).
type Cart struct {
	ID            string
	BuyerID       string
	Items         []LineItem
	TotalPrice    decimal.Decimal
	TotalQuantity int
	Status        Status
}

// Reconcile recomputes both totals by full summation over the line items.
// Totals are never adjusted incrementally: summation after every mutation
// keeps them drift-free regardless of operation ordering.
func (c *Cart) Reconcile() {
	total := decimal.Zero
	quantity := 0
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		quantity += it.Quantity
	}
	c.TotalPrice = total
	c.TotalQuantity = quantity
}

// Find returns the index of the line item for productID, or -1.
func (c *Cart) Find(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Repository defines persistence operations for carts.
type Repository interface {
	// GetActive returns the buyer's active cart, or ErrNoActiveCart.
	GetActive(ctx context.Context, buyerID string) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	// Update persists items, totals, and status of an existing cart.
	Update(ctx context.Context, c *Cart) error
}

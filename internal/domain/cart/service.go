package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/kivumart/kivumart-api/internal/domain/product"
)

// ItemUpdate is a single entry in a bulk cart update.
type ItemUpdate struct {
	ProductID string
	Quantity  int
}

// Service implements cart reconciliation: every mutation validates the
// request against live product stock, applies it to the item list, and
// recomputes totals by summation before persisting.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Get returns the buyer's active cart.
func (s *Service) Get(ctx context.Context, buyerID string) (*Cart, error) {
	return s.carts.GetActive(ctx, buyerID)
}

// AddItem adds quantity units of a product to the buyer's active cart,
// creating the cart on first add. New items capture the product's live
// price; existing items keep their captured price and gain quantity.
func (s *Service) AddItem(ctx context.Context, buyerID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.GetActive(ctx, buyerID)
	created := false
	if err != nil {
		if !errors.Is(err, ErrNoActiveCart) {
			return nil, errors.Wrap(err, "get active cart")
		}
		c = &Cart{
			ID:      uuid.New().String(),
			BuyerID: buyerID,
			Status:  StatusActive,
		}
		created = true
	}

	// Availability is checked against in-cart quantity plus the new
	// request, so repeated adds cannot overshoot stock.
	inCart := 0
	if i := c.Find(productID); i >= 0 {
		inCart = c.Items[i].Quantity
	}
	if !p.Available() || inCart+quantity > p.Quantity {
		return nil, &OutOfStockError{
			ProductID: productID,
			Requested: inCart + quantity,
			Available: p.Quantity,
		}
	}

	if i := c.Find(productID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  quantity,
			Images:    p.Images,
		})
	}
	c.Reconcile()

	if created {
		if err := s.carts.Create(ctx, c); err != nil {
			return nil, errors.Wrap(err, "create cart")
		}
		return c, nil
	}
	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}

// UpdateItems applies a bulk update to the buyer's active cart. Each entry
// replaces the quantity of an existing item or inserts a new one, validated
// against the product's current stock. Totals are recomputed by summation
// after every applied entry.
func (s *Service) UpdateItems(ctx context.Context, buyerID string, updates []ItemUpdate) (*Cart, error) {
	c, err := s.carts.GetActive(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		if u.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: u.ProductID}
		}

		p, err := s.products.GetByID(ctx, u.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.Available() || u.Quantity > p.Quantity {
			return nil, &OutOfStockError{
				ProductID: u.ProductID,
				Requested: u.Quantity,
				Available: p.Quantity,
			}
		}

		if i := c.Find(u.ProductID); i >= 0 {
			c.Items[i].Quantity = u.Quantity
		} else {
			c.Items = append(c.Items, LineItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  u.Quantity,
				Images:    p.Images,
			})
		}
		c.Reconcile()
	}

	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}

// RemoveItem removes a product from the buyer's active cart.
func (s *Service) RemoveItem(ctx context.Context, buyerID, productID string) (*Cart, error) {
	c, err := s.carts.GetActive(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	i := c.Find(productID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.Reconcile()

	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}

// Clear empties the buyer's active cart without changing its status.
func (s *Service) Clear(ctx context.Context, buyerID string) (*Cart, error) {
	c, err := s.carts.GetActive(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	c.Items = nil
	c.Reconcile()

	if err := s.carts.Update(ctx, c); err != nil {
		return nil, errors.Wrap(err, "update cart")
	}
	return c, nil
}

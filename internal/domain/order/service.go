package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
	"github.com/kivumart/kivumart-api/internal/event"
)

// CheckoutRequest is the input to Checkout.
type CheckoutRequest struct {
	Delivery DeliveryInfo
	Payment  PaymentDetails
}

// Service converts active carts into pending orders.
type Service struct {
	carts  cart.Repository
	orders Repository
	bus    event.Publisher
}

// NewService creates an order Service with the required dependencies.
func NewService(carts cart.Repository, orders Repository, bus event.Publisher) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
		bus:    bus,
	}
}

// Checkout validates the payment details, snapshots the buyer's active cart
// into a pending order, and clears the cart, both writes in one
// transaction. The order total is recomputed by summation over the cart's
// line items; the stored cart total is never trusted.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	if err := req.Payment.Validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	items := make([]cart.LineItem, len(c.Items))
	copy(items, c.Items)

	o := &Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		Items:       items,
		TotalAmount: total.Round(2),
		Status:      StatusPending,
		Delivery:    req.Delivery,
		Payment:     req.Payment.Record(),
	}

	if err := s.orders.CreateFromCart(ctx, o, c.ID); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.bus.Publish(event.OrderCreated{
		OrderID:     o.ID,
		UserID:      userID,
		TotalAmount: o.TotalAmount,
		ItemCount:   len(o.Items),
	})

	return o, nil
}

// Get returns an order owned by userID.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns every order of userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

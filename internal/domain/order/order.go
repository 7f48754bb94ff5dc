package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
)

// PaymentMethod enumerates the supported checkout payment methods.
type PaymentMethod string

const (
	MethodCreditCard  PaymentMethod = "creditCard"
	MethodMobileMoney PaymentMethod = "mobileMoney"
)

// Sentinel errors for order operations.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checkout finds an active cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidPaymentMethod is returned for an unknown payment method or
	// detail fields that do not match the chosen method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrStatusConflict is returned when a compare-and-set status update
	// loses to a concurrent transition.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// StateError indicates a payment operation was attempted on an order whose
// current status does not allow it.
type StateError struct {
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("order has already been %s", e.Status)
}

// DeliveryInfo holds the shipping destination captured at checkout.
type DeliveryInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode,omitempty"`
}

// PaymentDetails is the checkout input for the chosen payment method.
// Exactly the fields of the chosen method must be set; fields of the other
// method are rejected.
type PaymentDetails struct {
	Method            PaymentMethod
	CardNumber        string
	CardHolderName    string
	ExpiryDate        string
	CVV               string
	MobileMoneyNumber string
}

// Validate checks method membership and field disjointness.
func (d PaymentDetails) Validate() error {
	switch d.Method {
	case MethodCreditCard:
		if d.CardNumber == "" || d.CardHolderName == "" || d.ExpiryDate == "" || d.CVV == "" {
			return errors.Wrap(ErrInvalidPaymentMethod, "incomplete card details")
		}
		if d.MobileMoneyNumber != "" {
			return errors.Wrap(ErrInvalidPaymentMethod, "mobile money number not allowed for card payments")
		}
	case MethodMobileMoney:
		if d.MobileMoneyNumber == "" {
			return errors.Wrap(ErrInvalidPaymentMethod, "mobile money number required")
		}
		if d.CardNumber != "" || d.CardHolderName != "" || d.ExpiryDate != "" || d.CVV != "" {
			return errors.Wrap(ErrInvalidPaymentMethod, "card details not allowed for mobile money payments")
		}
	default:
		return ErrInvalidPaymentMethod
	}
	return nil
}

// PaymentInfo is what the order persists about its payment. Raw card data
// never reaches storage: only the method, the last four digits of the card,
// and the mobile money number survive checkout.
type PaymentInfo struct {
	Method            PaymentMethod `json:"method"`
	CardLast4         string        `json:"cardLast4,omitempty"`
	MobileMoneyNumber string        `json:"mobileMoneyNumber,omitempty"`
}

// Record converts validated checkout details into the persisted form.
func (d PaymentDetails) Record() PaymentInfo {
	info := PaymentInfo{Method: d.Method}
	switch d.Method {
	case MethodCreditCard:
		if n := len(d.CardNumber); n >= 4 {
			info.CardLast4 = d.CardNumber[n-4:]
		}
	case MethodMobileMoney:
		info.MobileMoneyNumber = d.MobileMoneyNumber
	}
	return info
}

// Order is a frozen snapshot of a cart at checkout plus payment state.
type Order struct {
	ID               string
	UserID           string
	Items            []cart.LineItem
	TotalAmount      decimal.Decimal
	Status           Status
	Delivery         DeliveryInfo
	Payment          PaymentInfo
	Reference        string
	ExpectedDelivery *time.Time
	CreatedAt        time.Time
}

// Repository defines persistence operations for orders. Multi-step
// mutations (order create + cart clear, stock decrement + status change)
// are single transactions at this boundary.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)

	// CreateFromCart atomically inserts the order and empties the source
	// cart's items and totals.
	CreateFromCart(ctx context.Context, o *Order, cartID string) error

	// UpdateStatus performs a compare-and-set transition. It returns
	// ErrStatusConflict when the order is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error

	// InitiatePayment atomically moves the order from StatusPending to
	// StatusInitiated, stores the gateway reference and expected delivery
	// date, and decrements stock for every line item. Insufficient stock
	// rolls back the whole transaction.
	InitiatePayment(ctx context.Context, o *Order) error

	// FailAndRestock atomically moves the order from StatusInitiated to
	// StatusFailed and returns every line item's quantity to stock,
	// releasing the reservation taken at initiation.
	FailAndRestock(ctx context.Context, o *Order) error
}

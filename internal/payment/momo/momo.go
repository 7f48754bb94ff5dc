// Package momo drives orders through the MTN MoMo collection flow:
// request-to-pay at initiation, then client-driven status polling until the
// gateway confirms.
package momo

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/event"
)

// The collection API is driven in EUR regardless of the client's display
// currency.
const currency = "EUR"

// StatusSuccessful is the gateway status that completes an order.
const StatusSuccessful = "SUCCESSFUL"

// ErrNotInitiated is returned when polling an order that has no gateway
// reference yet.
var ErrNotInitiated = errors.New("payment not initiated")

// Gateway abstracts the MoMo HTTP client for the adapter.
type Gateway interface {
	RequestToPay(ctx context.Context, reference string, amount decimal.Decimal, currency, payerNumber string) error
	PaymentStatus(ctx context.Context, reference string) (string, error)
}

// Adapter implements the MoMo payment flow over the order repository.
type Adapter struct {
	orders  order.Repository
	gateway Gateway
	bus     event.Publisher
	lg      *zap.Logger
}

// NewAdapter creates a MoMo Adapter.
func NewAdapter(orders order.Repository, gateway Gateway, bus event.Publisher, lg *zap.Logger) *Adapter {
	return &Adapter{
		orders:  orders,
		gateway: gateway,
		bus:     bus,
		lg:      lg,
	}
}

// RequestToPay starts a mobile money collection for a pending order. On
// gateway acceptance the transaction reference is persisted, stock is
// decremented, and the order moves to initiated, all in one transaction.
func (a *Adapter) RequestToPay(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := a.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Method != order.MethodMobileMoney {
		return nil, errors.Wrap(order.ErrInvalidPaymentMethod, "order is not a mobile money order")
	}
	// Completed and initiated are both sticky: a second request-to-pay
	// must not reach the gateway or touch stock again.
	if o.Status == order.StatusCompleted || o.Status == order.StatusInitiated {
		return nil, &order.StateError{Status: o.Status}
	}
	if !o.Status.CanTransition(order.StatusInitiated) {
		return nil, &order.StateError{Status: o.Status}
	}

	// The gateway transaction is keyed by a fresh reference, never the
	// order id.
	reference := uuid.New().String()
	if err := a.gateway.RequestToPay(ctx, reference, o.TotalAmount, currency, o.Payment.MobileMoneyNumber); err != nil {
		return nil, errors.Wrap(err, "gateway request to pay")
	}

	o.Reference = reference
	if err := a.orders.InitiatePayment(ctx, o); err != nil {
		return nil, errors.Wrap(err, "initiate payment")
	}

	a.bus.Publish(event.OrderStatusUpdated{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(order.StatusInitiated),
	})

	a.lg.Info("momo payment initiated",
		zap.String("order_id", o.ID),
		zap.String("reference", reference),
	)
	return o, nil
}

// CheckPaid polls the gateway for the order's transaction. When the gateway
// reports SUCCESSFUL the order is completed; any other status is returned
// to the caller unchanged so the client can poll again.
func (a *Adapter) CheckPaid(ctx context.Context, orderID string) (string, error) {
	o, err := a.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if o.Status == order.StatusCompleted {
		return StatusSuccessful, nil
	}
	if o.Reference == "" {
		return "", ErrNotInitiated
	}

	status, err := a.gateway.PaymentStatus(ctx, o.Reference)
	if err != nil {
		return "", errors.Wrap(err, "gateway payment status")
	}
	if status != StatusSuccessful {
		return status, nil
	}

	err = a.orders.UpdateStatus(ctx, o.ID, order.StatusInitiated, order.StatusCompleted)
	if err != nil {
		if errors.Is(err, order.ErrStatusConflict) {
			// A concurrent poll won the transition; the payment is done
			// either way.
			return StatusSuccessful, nil
		}
		return "", errors.Wrap(err, "complete order")
	}

	a.bus.Publish(event.OrderStatusUpdated{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(order.StatusCompleted),
	})
	return StatusSuccessful, nil
}

// Package stripe drives card orders through Stripe payment intents:
// synchronous confirmation at initiation, webhook-delivered settlement.
package stripe

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	stripego "github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/event"
)

// deliveryWindow is added to the initiation time to produce the expected
// delivery date.
const deliveryWindow = 10 * 24 * time.Hour

// Sentinel errors for card payment processing.
var (
	// ErrNotOwner is returned when the caller does not own the order.
	ErrNotOwner = errors.New("order does not belong to user")
	// ErrNoItems is returned for an order with an empty item list.
	ErrNoItems = errors.New("order has no items")
)

// IntentsClient abstracts the Stripe payment intents API.
// *paymentintent.Client satisfies it.
type IntentsClient interface {
	New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error)
}

// Result is the outcome of a payment attempt. When the gateway demands 3-D
// Secure, RequiresAction is set and RedirectURL carries the challenge page.
type Result struct {
	Order          *order.Order
	RequiresAction bool
	RedirectURL    string
}

// Processor initiates card payments and settles them from webhook events.
type Processor struct {
	orders  order.Repository
	intents IntentsClient
	bus     event.Publisher
	lg      *zap.Logger
	now     func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(orders order.Repository, intents IntentsClient, bus event.Publisher, lg *zap.Logger) *Processor {
	return &Processor{
		orders:  orders,
		intents: intents,
		bus:     bus,
		lg:      lg,
		now:     time.Now,
	}
}

// ProcessPayment creates and confirms a payment intent for a pending order
// owned by userID. The amount is derived from the stored order total in
// minor units; the intent carries {orderId, userId} metadata so the webhook
// can route settlement back to the order.
func (p *Processor) ProcessPayment(ctx context.Context, userID, orderID, currency, paymentMethodID string) (*Result, error) {
	o, err := p.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	if len(o.Items) == 0 {
		return nil, ErrNoItems
	}
	if o.Status == order.StatusCompleted || o.Status == order.StatusInitiated {
		return nil, &order.StateError{Status: o.Status}
	}
	if !o.Status.CanTransition(order.StatusInitiated) {
		return nil, &order.StateError{Status: o.Status}
	}

	amount := o.TotalAmount.Shift(2).IntPart()
	params := &stripego.PaymentIntentParams{
		Params:        stripego.Params{Context: ctx},
		Amount:        stripego.Int64(amount),
		Currency:      stripego.String(strings.ToLower(currency)),
		PaymentMethod: stripego.String(paymentMethodID),
		Confirm:       stripego.Bool(true),
	}
	params.AddMetadata("orderId", o.ID)
	params.AddMetadata("userId", o.UserID)

	pi, err := p.intents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	expected := p.now().Add(deliveryWindow)
	o.Reference = pi.ID
	o.ExpectedDelivery = &expected
	if err := p.orders.InitiatePayment(ctx, o); err != nil {
		return nil, errors.Wrap(err, "initiate payment")
	}

	p.bus.Publish(event.OrderStatusUpdated{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(order.StatusInitiated),
	})

	res := &Result{Order: o}
	if pi.Status == stripego.PaymentIntentStatusRequiresAction &&
		pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
		res.RequiresAction = true
		res.RedirectURL = pi.NextAction.RedirectToURL.URL
	}
	return res, nil
}

// HandleEvent settles orders from a verified webhook event. Unknown event
// types are acknowledged without state change. Redeliveries are harmless:
// the compare-and-set status update rejects a second identical transition.
func (p *Processor) HandleEvent(ctx context.Context, ev stripego.Event) error {
	switch string(ev.Type) {
	case "payment_intent.succeeded":
		return p.settle(ctx, ev, order.StatusCompleted)
	case "payment_intent.payment_failed":
		return p.settle(ctx, ev, order.StatusFailed)
	default:
		p.lg.Debug("ignoring webhook event", zap.String("type", string(ev.Type)))
		return nil
	}
}

func (p *Processor) settle(ctx context.Context, ev stripego.Event, to order.Status) error {
	var pi stripego.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return errors.Wrap(err, "decode payment intent")
	}
	orderID := pi.Metadata["orderId"]
	if orderID == "" {
		p.lg.Warn("webhook payment intent without orderId metadata",
			zap.String("intent_id", pi.ID))
		return nil
	}

	o, err := p.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			p.lg.Warn("webhook for unknown order", zap.String("order_id", orderID))
			return nil
		}
		return err
	}

	switch to {
	case order.StatusCompleted:
		err = p.orders.UpdateStatus(ctx, o.ID, order.StatusInitiated, order.StatusCompleted)
	case order.StatusFailed:
		// A failed payment releases the stock reserved at initiation.
		err = p.orders.FailAndRestock(ctx, o)
	default:
		return errors.Errorf("unexpected settlement status %s", to)
	}
	if err != nil {
		if errors.Is(err, order.ErrStatusConflict) {
			// Duplicate delivery or a lost race; the order already moved on.
			p.lg.Debug("webhook settlement skipped",
				zap.String("order_id", o.ID), zap.String("to", string(to)))
			return nil
		}
		return errors.Wrapf(err, "settle order %s", o.ID)
	}

	p.bus.Publish(event.OrderStatusUpdated{
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(to),
	})
	return nil
}

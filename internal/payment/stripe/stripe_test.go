package stripe

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v79"
	"go.uber.org/zap/zaptest"

	"github.com/kivumart/kivumart-api/internal/domain/cart"
	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/event"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[string]*order.Order
	initiated *order.Order
	updated   []string
	restocked []string
	updateErr error
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) CreateFromCart(_ context.Context, _ *order.Order, _ string) error {
	return nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, _, to order.Status) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, id+":"+string(to))
	return nil
}

func (m *mockOrderRepo) InitiatePayment(_ context.Context, o *order.Order) error {
	m.initiated = o
	return nil
}

func (m *mockOrderRepo) FailAndRestock(_ context.Context, o *order.Order) error {
	m.restocked = append(m.restocked, o.ID)
	return nil
}

type mockIntents struct {
	calls  int
	last   *stripego.PaymentIntentParams
	intent *stripego.PaymentIntent
	err    error
}

func (m *mockIntents) New(params *stripego.PaymentIntentParams) (*stripego.PaymentIntent, error) {
	m.calls++
	m.last = params
	return m.intent, m.err
}

type capturingBus struct {
	events []event.Event
}

func (b *capturingBus) Publish(e event.Event) { b.events = append(b.events, e) }

// --- Helpers ---

func cardOrder(status order.Status) *order.Order {
	return &order.Order{
		ID:          "o1",
		UserID:      "user-1",
		TotalAmount: decimal.RequireFromString("35.00"),
		Status:      status,
		Items: []cart.LineItem{
			{ProductID: "p1", Price: decimal.RequireFromString("10.00"), Quantity: 2},
			{ProductID: "p2", Price: decimal.RequireFromString("5.00"), Quantity: 3},
		},
		Payment: order.PaymentInfo{Method: order.MethodCreditCard, CardLast4: "4242"},
	}
}

func newProcessor(t *testing.T, repo *mockOrderRepo, intents *mockIntents, bus *capturingBus) *Processor {
	t.Helper()
	p := NewProcessor(repo, intents, bus, zaptest.NewLogger(t))
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func intentEvent(t *testing.T, eventType, orderID string) stripego.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       "pi_123",
		"metadata": map[string]string{"orderId": orderID, "userId": "user-1"},
	})
	require.NoError(t, err)
	return stripego.Event{
		ID:   "evt_1",
		Type: stripego.EventType(eventType),
		Data: &stripego.EventData{Raw: raw},
	}
}

// --- Tests ---

func TestProcessPayment_InitiatesOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusPending)}}
	intents := &mockIntents{intent: &stripego.PaymentIntent{
		ID:     "pi_123",
		Status: stripego.PaymentIntentStatusSucceeded,
	}}
	bus := &capturingBus{}

	res, err := newProcessor(t, repo, intents, bus).
		ProcessPayment(context.Background(), "user-1", "o1", "EUR", "pm_card")

	require.NoError(t, err)
	assert.False(t, res.RequiresAction)

	require.NotNil(t, intents.last)
	assert.Equal(t, int64(3500), *intents.last.Amount, "amount in minor units")
	assert.Equal(t, "eur", *intents.last.Currency)
	assert.Equal(t, "o1", intents.last.Metadata["orderId"])
	assert.Equal(t, "user-1", intents.last.Metadata["userId"])
	assert.True(t, *intents.last.Confirm)

	require.NotNil(t, repo.initiated)
	assert.Equal(t, "pi_123", repo.initiated.Reference)
	require.NotNil(t, repo.initiated.ExpectedDelivery)
	assert.Equal(t,
		time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
		repo.initiated.ExpectedDelivery.UTC(),
		"expected delivery is initiation time plus ten days")

	require.Len(t, bus.events, 1)
}

func TestProcessPayment_RequiresAction(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusPending)}}
	intents := &mockIntents{intent: &stripego.PaymentIntent{
		ID:     "pi_123",
		Status: stripego.PaymentIntentStatusRequiresAction,
		NextAction: &stripego.PaymentIntentNextAction{
			RedirectToURL: &stripego.PaymentIntentNextActionRedirectToURL{
				URL: "https://hooks.stripe.com/3ds",
			},
		},
	}}

	res, err := newProcessor(t, repo, intents, &capturingBus{}).
		ProcessPayment(context.Background(), "user-1", "o1", "EUR", "pm_card")

	require.NoError(t, err)
	assert.True(t, res.RequiresAction)
	assert.Equal(t, "https://hooks.stripe.com/3ds", res.RedirectURL)
}

func TestProcessPayment_OwnershipCheck(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusPending)}}
	intents := &mockIntents{}

	_, err := newProcessor(t, repo, intents, &capturingBus{}).
		ProcessPayment(context.Background(), "intruder", "o1", "EUR", "pm_card")

	require.ErrorIs(t, err, ErrNotOwner)
	assert.Zero(t, intents.calls)
}

func TestProcessPayment_EmptyItems(t *testing.T) {
	o := cardOrder(order.StatusPending)
	o.Items = nil
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": o}}

	_, err := newProcessor(t, repo, &mockIntents{}, &capturingBus{}).
		ProcessPayment(context.Background(), "user-1", "o1", "EUR", "pm_card")

	require.ErrorIs(t, err, ErrNoItems)
}

func TestProcessPayment_RefusesCompletedOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusCompleted)}}
	intents := &mockIntents{}

	_, err := newProcessor(t, repo, intents, &capturingBus{}).
		ProcessPayment(context.Background(), "user-1", "o1", "EUR", "pm_card")

	var stErr *order.StateError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, order.StatusCompleted, stErr.Status)
	assert.Zero(t, intents.calls, "no gateway call once completed")
	assert.Nil(t, repo.initiated, "no second stock decrement")
}

func TestHandleEvent_SucceededCompletesOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusInitiated)}}
	bus := &capturingBus{}
	p := newProcessor(t, repo, &mockIntents{}, bus)

	err := p.HandleEvent(context.Background(), intentEvent(t, "payment_intent.succeeded", "o1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"o1:completed"}, repo.updated)
	require.Len(t, bus.events, 1)
	su := bus.events[0].(event.OrderStatusUpdated)
	assert.Equal(t, string(order.StatusCompleted), su.Status)
}

func TestHandleEvent_FailedRestocks(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusInitiated)}}
	bus := &capturingBus{}
	p := newProcessor(t, repo, &mockIntents{}, bus)

	err := p.HandleEvent(context.Background(), intentEvent(t, "payment_intent.payment_failed", "o1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, repo.restocked)
	require.Len(t, bus.events, 1)
	su := bus.events[0].(event.OrderStatusUpdated)
	assert.Equal(t, string(order.StatusFailed), su.Status)
}

func TestHandleEvent_UnknownTypeIsAcknowledged(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": cardOrder(order.StatusInitiated)}}
	p := newProcessor(t, repo, &mockIntents{}, &capturingBus{})

	err := p.HandleEvent(context.Background(), intentEvent(t, "charge.refunded", "o1"))

	require.NoError(t, err)
	assert.Empty(t, repo.updated)
	assert.Empty(t, repo.restocked)
}

func TestHandleEvent_DuplicateDeliveryIsIdempotent(t *testing.T) {
	repo := &mockOrderRepo{
		byID:      map[string]*order.Order{"o1": cardOrder(order.StatusCompleted)},
		updateErr: order.ErrStatusConflict,
	}
	bus := &capturingBus{}
	p := newProcessor(t, repo, &mockIntents{}, bus)

	err := p.HandleEvent(context.Background(), intentEvent(t, "payment_intent.succeeded", "o1"))

	require.NoError(t, err)
	assert.Empty(t, bus.events, "no event for a skipped settlement")
}

func TestHandleEvent_UnknownOrderIsAcknowledged(t *testing.T) {
	p := newProcessor(t, &mockOrderRepo{byID: map[string]*order.Order{}}, &mockIntents{}, &capturingBus{})

	err := p.HandleEvent(context.Background(), intentEvent(t, "payment_intent.succeeded", "ghost"))
	require.NoError(t, err)
}

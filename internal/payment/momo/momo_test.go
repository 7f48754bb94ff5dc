package momo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kivumart/kivumart-api/internal/domain/order"
	"github.com/kivumart/kivumart-api/internal/event"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID        map[string]*order.Order
	initiated   *order.Order
	updated     []string
	updateErr   error
	initiateErr error
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
	if m.initiateErr != nil {
		return m.initiateErr
	}
	m.initiated = o
	return nil
}

func (m *mockOrderRepo) FailAndRestock(_ context.Context, _ *order.Order) error { return nil }

type mockGateway struct {
	payCalls    int
	payErr      error
	status      string
	statusCalls int
	statusErr   error
	lastRef     string
}

func (m *mockGateway) RequestToPay(_ context.Context, ref string, _ decimal.Decimal, _, _ string) error {
	m.payCalls++
	m.lastRef = ref
	return m.payErr
}

func (m *mockGateway) PaymentStatus(_ context.Context, ref string) (string, error) {
	m.statusCalls++
	m.lastRef = ref
	return m.status, m.statusErr
}

type capturingBus struct {
	events []event.Event
}

func (b *capturingBus) Publish(e event.Event) { b.events = append(b.events, e) }

// --- Helpers ---

func momoOrder(status order.Status) *order.Order {
	return &order.Order{
		ID:          "o1",
		UserID:      "user-1",
		TotalAmount: decimal.RequireFromString("35.00"),
		Status:      status,
		Payment: order.PaymentInfo{
			Method:            order.MethodMobileMoney,
			MobileMoneyNumber: "250788123456",
		},
		Reference: "",
	}
}

func newAdapter(t *testing.T, repo *mockOrderRepo, gw *mockGateway, bus *capturingBus) *Adapter {
	t.Helper()
	return NewAdapter(repo, gw, bus, zaptest.NewLogger(t))
}

// --- Tests ---

func TestRequestToPay_InitiatesPendingOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": momoOrder(order.StatusPending)}}
	gw := &mockGateway{}
	bus := &capturingBus{}

	o, err := newAdapter(t, repo, gw, bus).RequestToPay(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, 1, gw.payCalls)
	require.NotNil(t, repo.initiated)
	assert.NotEmpty(t, o.Reference)
	assert.Equal(t, gw.lastRef, o.Reference, "gateway keyed by the generated reference")
	assert.NotEqual(t, "o1", o.Reference, "reference must not be the order id")

	require.Len(t, bus.events, 1)
	su, ok := bus.events[0].(event.OrderStatusUpdated)
	require.True(t, ok)
	assert.Equal(t, string(order.StatusInitiated), su.Status)
}

func TestRequestToPay_RefusesCompletedOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": momoOrder(order.StatusCompleted)}}
	gw := &mockGateway{}

	_, err := newAdapter(t, repo, gw, &capturingBus{}).RequestToPay(context.Background(), "o1")

	var stErr *order.StateError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, order.StatusCompleted, stErr.Status)
	assert.Zero(t, gw.payCalls, "no gateway call for a completed order")
	assert.Nil(t, repo.initiated, "no second stock decrement")
}

func TestRequestToPay_RefusesInitiatedOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": momoOrder(order.StatusInitiated)}}
	gw := &mockGateway{}

	_, err := newAdapter(t, repo, gw, &capturingBus{}).RequestToPay(context.Background(), "o1")

	var stErr *order.StateError
	require.ErrorAs(t, err, &stErr)
	assert.Zero(t, gw.payCalls)
}

func TestRequestToPay_RefusesCardOrder(t *testing.T) {
	o := momoOrder(order.StatusPending)
	o.Payment = order.PaymentInfo{Method: order.MethodCreditCard, CardLast4: "4242"}
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": o}}
	gw := &mockGateway{}

	_, err := newAdapter(t, repo, gw, &capturingBus{}).RequestToPay(context.Background(), "o1")

	require.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
	assert.Zero(t, gw.payCalls)
}

func TestRequestToPay_GatewayFailureLeavesOrderUntouched(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": momoOrder(order.StatusPending)}}
	gw := &mockGateway{payErr: assert.AnError}
	bus := &capturingBus{}

	_, err := newAdapter(t, repo, gw, bus).RequestToPay(context.Background(), "o1")

	require.Error(t, err)
	assert.Nil(t, repo.initiated)
	assert.Empty(t, bus.events)
}

func TestCheckPaid_SuccessfulCompletesOrder(t *testing.T) {
	o := momoOrder(order.StatusInitiated)
	o.Reference = "ref-1"
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": o}}
	gw := &mockGateway{status: StatusSuccessful}
	bus := &capturingBus{}

	status, err := newAdapter(t, repo, gw, bus).CheckPaid(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, status)
	assert.Equal(t, "ref-1", gw.lastRef, "polled by the stored reference")
	assert.Equal(t, []string{"o1:completed"}, repo.updated)
	require.Len(t, bus.events, 1)
}

func TestCheckPaid_PendingGatewayStatusIsPassedThrough(t *testing.T) {
	o := momoOrder(order.StatusInitiated)
	o.Reference = "ref-1"
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": o}}
	gw := &mockGateway{status: "PENDING"}
	bus := &capturingBus{}

	status, err := newAdapter(t, repo, gw, bus).CheckPaid(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, "PENDING", status)
	assert.Empty(t, repo.updated, "order state unchanged")
	assert.Empty(t, bus.events)
}

func TestCheckPaid_CompletedOrderSkipsGateway(t *testing.T) {
	o := momoOrder(order.StatusCompleted)
	o.Reference = "ref-1"
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": o}}
	gw := &mockGateway{}

	status, err := newAdapter(t, repo, gw, &capturingBus{}).CheckPaid(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, status)
	assert.Zero(t, gw.statusCalls)
}

func TestCheckPaid_WithoutReference(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*order.Order{"o1": momoOrder(order.StatusPending)}}

	_, err := newAdapter(t, repo, &mockGateway{}, &capturingBus{}).CheckPaid(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotInitiated)
}

func TestCheckPaid_LostRaceIsStillSuccessful(t *testing.T) {
	o := momoOrder(order.StatusInitiated)
	o.Reference = "ref-1"
	repo := &mockOrderRepo{
		byID:      map[string]*order.Order{"o1": o},
		updateErr: order.ErrStatusConflict,
	}
	gw := &mockGateway{status: StatusSuccessful}

	status, err := newAdapter(t, repo, gw, &capturingBus{}).CheckPaid(context.Background(), "o1")

	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, status)
}

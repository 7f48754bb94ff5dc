package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kivumart/kivumart-api/internal/domain/notification"
	"github.com/kivumart/kivumart-api/internal/domain/user"
	"github.com/kivumart/kivumart-api/internal/event"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byID     map[string]*user.User
	verified []user.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) ListVerified(_ context.Context) ([]user.User, error) {
	return m.verified, nil
}

type mockNotificationRepo struct {
	mu   sync.Mutex
	rows []*notification.Notification
}

func (m *mockNotificationRepo) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, _ string) ([]notification.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, _, _ string) error { return nil }

func (m *mockNotificationRepo) byUser() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, n := range m.rows {
		counts[n.UserID]++
	}
	return counts
}

type mockMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

func (m *mockMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type mockHub struct {
	mu        sync.Mutex
	broadcast []string
	direct    []string
}

func (m *mockHub) Broadcast(event string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast = append(m.broadcast, event)
}

func (m *mockHub) SendTo(userID, _ string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = append(m.direct, userID)
}

// --- Helpers ---

func testUsers() *mockUserRepo {
	buyer := &user.User{ID: "buyer-1", Email: "buyer@example.com", Name: "Buyer", Verified: true}
	seller := &user.User{ID: "seller-1", Email: "seller@example.com", Name: "Seller", Verified: true}
	other := &user.User{ID: "other-1", Email: "other@example.com", Name: "Other", Verified: true}
	return &mockUserRepo{
		byID:     map[string]*user.User{"buyer-1": buyer, "seller-1": seller, "other-1": other},
		verified: []user.User{*buyer, *seller, *other},
	}
}

// --- Tests ---

func TestHandleOrderCreated_WritesRowEmailsAndPushes(t *testing.T) {
	rows := &mockNotificationRepo{}
	mail := &mockMailer{}
	hub := &mockHub{}
	n := New(testUsers(), rows, mail, hub, zaptest.NewLogger(t))

	n.handleOrderCreated(context.Background(), event.OrderCreated{
		OrderID:     "o1",
		UserID:      "buyer-1",
		TotalAmount: decimal.RequireFromString("35.00"),
		ItemCount:   2,
	})

	require.Len(t, rows.rows, 1)
	assert.Equal(t, "buyer-1", rows.rows[0].UserID)
	assert.Equal(t, "o1", rows.rows[0].EntityID)
	assert.Contains(t, rows.rows[0].Message, "35.00")
	assert.Equal(t, []string{"buyer@example.com"}, mail.recipients())
	assert.Equal(t, []string{"buyer-1"}, hub.direct)
}

func TestHandleOrderStatusUpdated(t *testing.T) {
	rows := &mockNotificationRepo{}
	n := New(testUsers(), rows, &mockMailer{}, &mockHub{}, zaptest.NewLogger(t))

	n.handleOrderStatusUpdated(context.Background(), event.OrderStatusUpdated{
		OrderID: "o1", UserID: "buyer-1", Status: "completed",
	})

	require.Len(t, rows.rows, 1)
	assert.Contains(t, rows.rows[0].Message, "completed")
}

func TestHandleProductCreated_BroadcastsToOtherVerifiedUsers(t *testing.T) {
	rows := &mockNotificationRepo{}
	mail := &mockMailer{}
	hub := &mockHub{}
	n := New(testUsers(), rows, mail, hub, zaptest.NewLogger(t))

	n.handleProductCreated(context.Background(), event.ProductCreated{
		ProductID: "p1", SellerID: "seller-1", Name: "Widget",
	})

	counts := rows.byUser()
	// Seller gets the publish confirmation; the broadcast skips the seller.
	assert.Equal(t, 1, counts["seller-1"])
	assert.Equal(t, 1, counts["buyer-1"])
	assert.Equal(t, 1, counts["other-1"])
	assert.Equal(t, []string{string(event.TopicProductCreated)}, hub.broadcast)
	assert.Len(t, mail.recipients(), 3)
}

func TestDeliver_EmailFailureKeepsNotificationRow(t *testing.T) {
	rows := &mockNotificationRepo{}
	mail := &mockMailer{err: errors.New("smtp down")}
	n := New(testUsers(), rows, mail, &mockHub{}, zaptest.NewLogger(t))

	n.handleOrderCreated(context.Background(), event.OrderCreated{
		OrderID: "o1", UserID: "buyer-1", TotalAmount: decimal.Zero,
	})

	require.Len(t, rows.rows, 1, "row write survives email failure")
}

func TestDeliver_UnknownRecipientIsSkipped(t *testing.T) {
	rows := &mockNotificationRepo{}
	n := New(testUsers(), rows, &mockMailer{}, &mockHub{}, zaptest.NewLogger(t))

	n.handleOrderCreated(context.Background(), event.OrderCreated{
		OrderID: "o1", UserID: "ghost",
	})

	assert.Empty(t, rows.rows)
}

// Package notify turns domain events into notification rows, email, and
// websocket pushes.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kivumart/kivumart-api/internal/domain/notification"
	"github.com/kivumart/kivumart-api/internal/domain/user"
	"github.com/kivumart/kivumart-api/internal/event"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Broadcaster mirrors notification events to connected clients.
type Broadcaster interface {
	Broadcast(event string, payload any)
	SendTo(userID, event string, payload any)
}

// defaultFanout bounds concurrent email sends during catalog broadcasts.
const defaultFanout = 8

// Notifier subscribes to the event bus and, per event, writes a
// notification row, sends a best-effort email, and pushes a websocket
// frame. The row write is authoritative; email and socket failures are
// logged and never undo it.
type Notifier struct {
	users         user.Repository
	notifications notification.Repository
	mailer        Mailer
	hub           Broadcaster
	lg            *zap.Logger
	fanout        int
}

// New creates a Notifier.
func New(
	users user.Repository,
	notifications notification.Repository,
	mailer Mailer,
	hub Broadcaster,
	lg *zap.Logger,
) *Notifier {
	return &Notifier{
		users:         users,
		notifications: notifications,
		mailer:        mailer,
		hub:           hub,
		lg:            lg,
		fanout:        defaultFanout,
	}
}

// Register subscribes the notifier's handlers on the bus.
func (n *Notifier) Register(bus *event.Bus) {
	bus.Subscribe(event.TopicOrderCreated, n.handleOrderCreated)
	bus.Subscribe(event.TopicOrderStatusUpdated, n.handleOrderStatusUpdated)
	bus.Subscribe(event.TopicProductCreated, n.handleProductCreated)
	bus.Subscribe(event.TopicCollectionCreated, n.handleCollectionCreated)
}

func (n *Notifier) handleOrderCreated(ctx context.Context, e event.Event) {
	oc, ok := e.(event.OrderCreated)
	if !ok {
		return
	}
	msg := fmt.Sprintf("Your order %s has been placed. Total: %s", oc.OrderID, oc.TotalAmount.StringFixed(2))
	n.deliver(ctx, oc.UserID, oc.OrderID, event.TopicOrderCreated, "Order placed", msg)
}

func (n *Notifier) handleOrderStatusUpdated(ctx context.Context, e event.Event) {
	su, ok := e.(event.OrderStatusUpdated)
	if !ok {
		return
	}
	msg := fmt.Sprintf("Your order %s is now %s", su.OrderID, su.Status)
	n.deliver(ctx, su.UserID, su.OrderID, event.TopicOrderStatusUpdated, "Order update", msg)
}

func (n *Notifier) handleProductCreated(ctx context.Context, e event.Event) {
	pc, ok := e.(event.ProductCreated)
	if !ok {
		return
	}

	sellerMsg := fmt.Sprintf("Your product %q is now live", pc.Name)
	n.deliver(ctx, pc.SellerID, pc.ProductID, event.TopicProductCreated, "Product published", sellerMsg)

	n.broadcast(ctx, pc.SellerID, pc.ProductID, event.TopicProductCreated,
		"New arrival", fmt.Sprintf("New product in the catalog: %s", pc.Name))
}

func (n *Notifier) handleCollectionCreated(ctx context.Context, e event.Event) {
	cc, ok := e.(event.CollectionCreated)
	if !ok {
		return
	}

	sellerMsg := fmt.Sprintf("Your collection %q has been created", cc.Name)
	n.deliver(ctx, cc.SellerID, cc.CollectionID, event.TopicCollectionCreated, "Collection created", sellerMsg)

	n.broadcast(ctx, cc.SellerID, cc.CollectionID, event.TopicCollectionCreated,
		"New collection", fmt.Sprintf("New collection in the store: %s", cc.Name))
}

// deliver writes the notification row for userID, then sends email and
// socket frames.
func (n *Notifier) deliver(ctx context.Context, userID, entityID string, topic event.Topic, subject, message string) {
	u, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.lg.Warn("notification recipient lookup failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	row := &notification.Notification{
		ID:       uuid.New().String(),
		UserID:   u.ID,
		EntityID: entityID,
		Message:  message,
	}
	if err := n.notifications.Create(ctx, row); err != nil {
		n.lg.Error("notification write failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := n.mailer.Send(ctx, u.Email, subject, "<p>"+message+"</p>"); err != nil {
		// Email is best-effort: the notification row stays either way.
		n.lg.Warn("notification email failed",
			zap.String("user_id", userID), zap.Error(err))
	}

	n.hub.SendTo(u.ID, string(topic), map[string]string{
		"id":       row.ID,
		"entityId": entityID,
		"message":  message,
	})
}

// broadcast notifies every verified user except the originator. Email sends
// run with bounded parallelism.
func (n *Notifier) broadcast(ctx context.Context, exceptUserID, entityID string, topic event.Topic, subject, message string) {
	users, err := n.users.ListVerified(ctx)
	if err != nil {
		n.lg.Error("broadcast recipient listing failed", zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.fanout)
	for _, u := range users {
		if u.ID == exceptUserID {
			continue
		}
		g.Go(func() error {
			row := &notification.Notification{
				ID:       uuid.New().String(),
				UserID:   u.ID,
				EntityID: entityID,
				Message:  message,
			}
			if err := n.notifications.Create(gctx, row); err != nil {
				n.lg.Error("broadcast notification write failed",
					zap.String("user_id", u.ID), zap.Error(err))
				return nil
			}
			if err := n.mailer.Send(gctx, u.Email, subject, "<p>"+message+"</p>"); err != nil {
				n.lg.Warn("broadcast email failed",
					zap.String("user_id", u.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	n.hub.Broadcast(string(topic), map[string]string{
		"entityId": entityID,
		"message":  message,
	})
}

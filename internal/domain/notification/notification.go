package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested notification does not exist
// or belongs to another user.
var ErrNotFound = errors.New("notification not found")

// Notification is an append-only in-app message. EntityID weakly references
// the entity that triggered it (order, product, collection) by id only.
type Notification struct {
	ID        string
	UserID    string
	EntityID  string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// Repository defines persistence operations for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	// MarkRead flags a notification as read, scoped to its owner.
	MarkRead(ctx context.Context, userID, id string) error
}

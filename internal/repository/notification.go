package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kivumart/kivumart-api/internal/domain/notification"
)

const (
	insertNotificationSQL = `INSERT INTO notifications (id, user_id, entity_id, message)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4)`

	listNotificationsSQL = `SELECT id, user_id, COALESCE(entity_id::text, ''), message, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	markNotificationReadSQL = `UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts a new notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, insertNotificationSQL, n.ID, n.UserID, n.EntityID, n.Message)
	if err != nil {
		return fmt.Errorf("creating notification for %q: %w", n.UserID, err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanNotification)
}

// MarkRead flags a notification as read. The user scope in the WHERE clause
// keeps one user from touching another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, markNotificationReadSQL, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification %q read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.EntityID, &n.Message, &n.IsRead, &n.CreatedAt)
	return n, err
}

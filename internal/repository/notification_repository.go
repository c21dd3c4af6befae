package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/college-admin-api/internal/models"
)

const notificationColumns = "id, recipient_id, title, message, type, read, attachment, created_at"

// NotificationRepository provides persistence for in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a single notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, recipient_id, title, message, type, read, attachment, created_at) VALUES (:id, :recipient_id, :title, :message, :type, :read, :attachment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// BulkCreate inserts many notifications within a transaction. Used by
// class-wide fan-out so a cohort either gets the batch or none of it.
func (r *NotificationRepository) BulkCreate(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create notifications: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range notifications {
		payload := notifications[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO notifications (id, recipient_id, title, message, type, read, attachment, created_at) VALUES (:id, :recipient_id, :title, :message, :type, :read, :attachment, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert notification: %w", err)
		}
		notifications[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create notifications: %w", err)
	}
	return nil
}

// ListByRecipient returns the newest notifications for a user along
// with the recipient's unread count.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]models.Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT %d", notificationColumns, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var unread int
	if err := r.db.GetContext(ctx, &unread, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`, recipientID); err != nil {
		return nil, 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return notifications, unread, nil
}

// MarkRead flags one notification as read. Returns the number of rows
// affected so callers can report a missing id.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	return res.RowsAffected()
}

// MarkAllRead flags every notification of the recipient as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1`, recipientID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes one notification owned by the recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return 0, fmt.Errorf("delete notification: %w", err)
	}
	return res.RowsAffected()
}

// DeleteRead removes every read notification of the recipient.
func (r *NotificationRepository) DeleteRead(ctx context.Context, recipientID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE recipient_id = $1 AND read = TRUE`, recipientID); err != nil {
		return fmt.Errorf("clear read notifications: %w", err)
	}
	return nil
}

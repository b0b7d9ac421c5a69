package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"pinmap-service/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository defines interactions for notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
	Get(ctx context.Context, id, recipient string) (models.Notification, error)
	ListForRecipient(ctx context.Context, recipient string) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipient string) (int, error)
	UnreadMessageCounts(ctx context.Context, recipient string) (map[string]int, error)
	MarkRead(ctx context.Context, id, recipient string) error
	MarkAllRead(ctx context.Context, recipient string) error
	Delete(ctx context.Context, id, recipient string) error
}

// NotificationRepo is a sqlx-backed repository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create stores a notification record.
func (r *NotificationRepo) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO notifications (id, recipient, sender, kind, entity_kind, entity_id, body)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, recipient, sender, kind, entity_kind, entity_id, body, is_read, created_at`,
		n.ID, n.Recipient, n.Sender, n.Kind, n.EntityKind, n.EntityID, n.Body).
		Scan(&n.ID, &n.Recipient, &n.Sender, &n.Kind, &n.EntityKind, &n.EntityID, &n.Body, &n.IsRead, &n.CreatedAt)
	return n, err
}

// Get retrieves one notification scoped to its recipient.
func (r *NotificationRepo) Get(ctx context.Context, id, recipient string) (models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n, `SELECT id, recipient, sender, kind, entity_kind, entity_id, body, is_read, created_at
        FROM notifications WHERE id=$1 AND recipient=$2`, id, recipient)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// ListForRecipient returns notifications newest first.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipient string) ([]models.Notification, error) {
	var items []models.Notification
	err := r.db.SelectContext(ctx, &items, `SELECT id, recipient, sender, kind, entity_kind, entity_id, body, is_read, created_at
        FROM notifications WHERE recipient=$1 ORDER BY created_at DESC`, recipient)
	return items, err
}

// UnreadCount returns the recipient's number of unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context, recipient string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE recipient=$1 AND is_read=FALSE`, recipient)
	return count, err
}

// UnreadMessageCounts returns unread message-kind notifications grouped
// by sender. Conversation summaries use this as their best-effort unread
// count.
func (r *NotificationRepo) UnreadMessageCounts(ctx context.Context, recipient string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT sender, COUNT(*) AS count FROM notifications
        WHERE recipient=$1 AND kind=$2 AND is_read=FALSE GROUP BY sender`, recipient, models.KindMessage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var sender string
		var count int
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, err
		}
		counts[sender] = count
	}
	return counts, rows.Err()
}

// MarkRead flips is_read to true. The transition is monotonic; there is
// no way back to unread.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipient string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND recipient=$2`, id, recipient)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipient string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE recipient=$1 AND is_read=FALSE`, recipient)
	return err
}

// Delete removes one notification scoped to its recipient.
func (r *NotificationRepo) Delete(ctx context.Context, id, recipient string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1 AND recipient=$2`, id, recipient)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

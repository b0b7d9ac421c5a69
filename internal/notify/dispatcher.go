// Package notify creates notification records and maintains the live
// inbox view of a recipient.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

// Dispatcher inserts notification records as a side effect of likes,
// comments and direct messages.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	content       repositories.ContentRepository
	bus           feed.Bus
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(notifications repositories.NotificationRepository, content repositories.ContentRepository, bus feed.Bus) *Dispatcher {
	return &Dispatcher{notifications: notifications, content: content, bus: bus}
}

// Notify stores one notification and publishes its feed event. A
// self-notification (recipient == sender) is a no-op reported as
// unsuccessful, not an error. Returns whether a record was created.
func (d *Dispatcher) Notify(ctx context.Context, recipient, sender string, kind models.Kind, entityKind models.EntityKind, entityID, body string) (bool, error) {
	if recipient == "" || recipient == sender {
		return false, nil
	}

	n := models.Notification{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Sender:     sender,
		Kind:       kind,
		EntityKind: entityKind,
		EntityID:   entityID,
		Body:       body,
	}
	stored, err := d.notifications.Create(ctx, n)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}

	if err := d.bus.Publish(ctx, feed.Event{
		Collection:   feed.CollectionNotifications,
		Op:           feed.OpInsert,
		Key:          recipient,
		RowID:        stored.ID,
		Notification: &stored,
	}); err != nil {
		log.Printf("notify: publish notification event: %v", err)
	}
	return true, nil
}

// LikeRecipient resolves who a like notification goes to. A like on a
// comment needs the extra hop: fetch the comment to find its author.
// The comment's author is notified, not the parent pin's or post's.
func (d *Dispatcher) LikeRecipient(ctx context.Context, entityKind models.EntityKind, entityID string) (string, error) {
	switch entityKind {
	case models.EntityComment, models.EntityBlogPostComment:
		c, err := d.content.GetComment(ctx, entityID)
		if err != nil {
			return "", fmt.Errorf("resolve comment author: %w", err)
		}
		return c.Author, nil
	default:
		author, err := d.content.AuthorOf(ctx, entityKind, entityID)
		if err != nil {
			return "", fmt.Errorf("resolve %s author: %w", entityKind, err)
		}
		return author, nil
	}
}

package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

// Target is the concrete destination a notification resolves to.
type Target struct {
	EntityKind models.EntityKind `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
}

// Inbox is the live notification view of one recipient. It tracks the
// ids it deleted itself so the feed echo of its own delete is consumed
// silently instead of triggering a refetch that could resurrect the row
// mid-flight.
type Inbox struct {
	store     repositories.NotificationRepository
	content   repositories.ContentRepository
	bus       feed.Bus
	recipient string

	mu      sync.Mutex
	open    bool
	items   []models.Notification
	unread  int
	pending map[string]struct{}
	sub     feed.Subscription

	onRefresh func(items []models.Notification, unread int)
}

// NewInbox builds a closed inbox for one recipient.
func NewInbox(store repositories.NotificationRepository, content repositories.ContentRepository, bus feed.Bus, recipient string) *Inbox {
	return &Inbox{
		store:     store,
		content:   content,
		bus:       bus,
		recipient: recipient,
		pending:   make(map[string]struct{}),
	}
}

// OnRefresh registers a callback invoked after every refetch. Set it
// before Open.
func (in *Inbox) OnRefresh(fn func(items []models.Notification, unread int)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.onRefresh = fn
}

// Open fetches the current list and subscribes to the recipient's
// stream.
func (in *Inbox) Open(ctx context.Context) error {
	if in.recipient == "" {
		return apperrors.ErrUnauthenticated
	}
	if in.store == nil || in.bus == nil {
		return apperrors.ErrNotConnected
	}

	items, err := in.store.ListForRecipient(ctx, in.recipient)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	unread, err := in.store.UnreadCount(ctx, in.recipient)
	if err != nil {
		return fmt.Errorf("load unread count: %w", err)
	}

	sub, err := in.bus.Subscribe(feed.CollectionNotifications, in.recipient, in.handleEvent)
	if err != nil {
		return fmt.Errorf("subscribe notification feed: %w", err)
	}

	in.mu.Lock()
	in.items = items
	in.unread = unread
	in.sub = sub
	in.open = true
	in.mu.Unlock()
	return nil
}

// handleEvent applies the echo asymmetry: a deletion this inbox caused
// itself is consumed without a refetch; everything else refetches list
// and unread count.
func (in *Inbox) handleEvent(ev feed.Event) {
	in.mu.Lock()
	if !in.open {
		in.mu.Unlock()
		return
	}
	if ev.Op == feed.OpDelete {
		if _, mine := in.pending[ev.RowID]; mine {
			delete(in.pending, ev.RowID)
			in.mu.Unlock()
			return
		}
	}
	in.mu.Unlock()

	in.refetch(context.Background())
}

func (in *Inbox) refetch(ctx context.Context) {
	items, err := in.store.ListForRecipient(ctx, in.recipient)
	if err != nil {
		log.Printf("notify: refetch list: %v", err)
		return
	}
	unread, err := in.store.UnreadCount(ctx, in.recipient)
	if err != nil {
		log.Printf("notify: refetch unread: %v", err)
		return
	}

	in.mu.Lock()
	if !in.open {
		in.mu.Unlock()
		return
	}
	in.items = items
	in.unread = unread
	fn := in.onRefresh
	snapshot := make([]models.Notification, len(items))
	copy(snapshot, items)
	in.mu.Unlock()

	if fn != nil {
		fn(snapshot, unread)
	}
}

// MarkRead flips one notification to read, remotely and locally. The
// flag never reverts.
func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	if err := in.store.MarkRead(ctx, id, in.recipient); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}

	in.mu.Lock()
	for i := range in.items {
		if in.items[i].ID == id && !in.items[i].IsRead {
			in.items[i].IsRead = true
			if in.unread > 0 {
				in.unread--
			}
			break
		}
	}
	in.mu.Unlock()

	in.publishUpdate(ctx, id)
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
// Idempotent: a second call finds nothing unread and changes nothing.
func (in *Inbox) MarkAllRead(ctx context.Context) error {
	if err := in.store.MarkAllRead(ctx, in.recipient); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}

	in.mu.Lock()
	for i := range in.items {
		in.items[i].IsRead = true
	}
	in.unread = 0
	in.mu.Unlock()

	in.publishUpdate(ctx, "")
	return nil
}

// Delete removes a notification optimistically. The id goes into the
// pending set before the remote delete is issued, so the echo coming
// back through the feed is recognized as our own. On failure the exact
// removed item is restored at its position without a refetch.
func (in *Inbox) Delete(ctx context.Context, id string) error {
	in.mu.Lock()
	idx := -1
	for i := range in.items {
		if in.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		in.mu.Unlock()
		return repositories.ErrNotificationNotFound
	}
	captured := in.items[idx]
	in.pending[id] = struct{}{}
	in.items = append(in.items[:idx:idx], in.items[idx+1:]...)
	if !captured.IsRead && in.unread > 0 {
		in.unread--
	}
	in.mu.Unlock()

	if err := in.store.Delete(ctx, id, in.recipient); err != nil {
		in.mu.Lock()
		delete(in.pending, id)
		if idx > len(in.items) {
			idx = len(in.items)
		}
		in.items = append(in.items[:idx], append([]models.Notification{captured}, in.items[idx:]...)...)
		if !captured.IsRead {
			in.unread++
		}
		in.mu.Unlock()
		return fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}

	if err := in.bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionNotifications,
		Op:         feed.OpDelete,
		Key:        in.recipient,
		RowID:      id,
	}); err != nil {
		log.Printf("notify: publish delete event: %v", err)
	}
	return nil
}

func (in *Inbox) publishUpdate(ctx context.Context, rowID string) {
	if err := in.bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionNotifications,
		Op:         feed.OpUpdate,
		Key:        in.recipient,
		RowID:      rowID,
	}); err != nil {
		log.Printf("notify: publish update event: %v", err)
	}
}

// ResolveTarget resolves where clicking the notification navigates to.
func (in *Inbox) ResolveTarget(ctx context.Context, n models.Notification) (Target, error) {
	return ResolveTarget(ctx, in.content, n)
}

// ResolveTarget maps a notification to a concrete destination. Comment
// notifications need an extra fetch to discover the parent pin or post;
// if the comment is gone the navigation fails rather than pointing at a
// dead target.
func ResolveTarget(ctx context.Context, content repositories.ContentRepository, n models.Notification) (Target, error) {
	switch n.EntityKind {
	case models.EntityComment, models.EntityBlogPostComment:
		c, err := content.GetComment(ctx, n.EntityID)
		if err != nil {
			return Target{}, fmt.Errorf("%w: %v", apperrors.ErrNavigationTargetMissing, err)
		}
		return Target{EntityKind: c.ParentKind, EntityID: c.ParentID}, nil
	case models.EntityChatMessage:
		// Navigate to the conversation with the sender.
		return Target{EntityKind: models.EntityChatMessage, EntityID: n.Sender}, nil
	default:
		return Target{EntityKind: n.EntityKind, EntityID: n.EntityID}, nil
	}
}

// Items returns a snapshot of the current list.
func (in *Inbox) Items() []models.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]models.Notification, len(in.items))
	copy(out, in.items)
	return out
}

// Unread returns the current unread count.
func (in *Inbox) Unread() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.unread
}

// Close tears down the subscription. Idempotent.
func (in *Inbox) Close() error {
	in.mu.Lock()
	sub := in.sub
	in.sub = nil
	in.open = false
	in.mu.Unlock()

	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

package models

import (
	"fmt"
	"time"
)

// Kind classifies the action that produced a notification.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindMessage Kind = "message"
)

// EntityKind names the entity a notification points at.
type EntityKind string

const (
	EntityPin             EntityKind = "pin"
	EntityBlogPost        EntityKind = "blog_post"
	EntityMarketplaceItem EntityKind = "marketplace_item"
	EntityChatMessage     EntityKind = "chat_message"
	EntityComment         EntityKind = "comment"
	EntityBlogPostComment EntityKind = "blog_post_comment"
)

// ParseEntityKind validates a client-supplied entity kind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case EntityPin, EntityBlogPost, EntityMarketplaceItem, EntityChatMessage, EntityComment, EntityBlogPostComment:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Notification is a stored notification record. IsRead only ever moves
// from false to true.
type Notification struct {
	ID         string     `db:"id" json:"id"`
	Recipient  string     `db:"recipient" json:"recipient"`
	Sender     string     `db:"sender" json:"sender"`
	Kind       Kind       `db:"kind" json:"kind"`
	EntityKind EntityKind `db:"entity_kind" json:"entity_kind"`
	EntityID   string     `db:"entity_id" json:"entity_id"`
	Body       string     `db:"body" json:"body"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// InboxEvent is emitted over notification WebSocket connections.
type InboxEvent struct {
	Type   string         `json:"type"`
	Items  []Notification `json:"items,omitempty"`
	Unread int            `json:"unread"`
	Error  string         `json:"error,omitempty"`
}

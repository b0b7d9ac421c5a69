// Package feed is the change-feed channel between the store and live
// sessions. Every successful write is published here, including back to
// the client that caused it (the echo); consumers are responsible for
// deduplicating or suppressing their own echoes.
package feed

import (
	"context"

	"pinmap-service/internal/models"
)

// Collections the feed carries events for.
const (
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
)

// Op is the kind of change an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one change on a collection. Key is the filter column value a
// subscriber registered for: the conversation id for messages, the
// recipient username for notifications. RowID may be empty for bulk
// operations.
type Event struct {
	Collection   string               `json:"collection"`
	Op           Op                   `json:"op"`
	Key          string               `json:"key"`
	RowID        string               `json:"row_id,omitempty"`
	Message      *models.Message      `json:"message,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Subscription is a live registration on a (collection, key) pair.
type Subscription interface {
	Unsubscribe() error
}

// Bus publishes and delivers change events.
type Bus interface {
	Subscribe(collection, key string, handler func(Event)) (Subscription, error)
	Publish(ctx context.Context, ev Event) error
}

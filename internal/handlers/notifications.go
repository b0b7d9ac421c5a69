package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/notify"
	"pinmap-service/internal/repositories"
)

// NotificationHandler serves the REST view of the inbox. The live view
// runs over websockets; these endpoints cover clients that poll.
type NotificationHandler struct {
	notifications repositories.NotificationRepository
	content       repositories.ContentRepository
	bus           feed.Bus
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifications repositories.NotificationRepository, content repositories.ContentRepository, bus feed.Bus) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, content: content, bus: bus}
}

// List returns the caller's notifications newest first plus the unread
// count.
func (h *NotificationHandler) List(c *gin.Context) {
	recipient := usernameFromContext(c)

	items, err := h.notifications.ListForRecipient(c.Request.Context(), recipient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), recipient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": items, "unread": unread})
}

// MarkRead flips one notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	recipient := usernameFromContext(c)
	id := c.Param("id")

	if err := h.notifications.MarkRead(c.Request.Context(), id, recipient); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notification read"})
		return
	}

	_ = h.bus.Publish(c.Request.Context(), feed.Event{
		Collection: feed.CollectionNotifications,
		Op:         feed.OpUpdate,
		Key:        recipient,
		RowID:      id,
	})
	c.Status(http.StatusNoContent)
}

// MarkAllRead flips every unread notification of the caller.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	recipient := usernameFromContext(c)

	if err := h.notifications.MarkAllRead(c.Request.Context(), recipient); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark notifications read"})
		return
	}

	_ = h.bus.Publish(c.Request.Context(), feed.Event{
		Collection: feed.CollectionNotifications,
		Op:         feed.OpUpdate,
		Key:        recipient,
	})
	c.Status(http.StatusNoContent)
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	recipient := usernameFromContext(c)
	id := c.Param("id")

	if err := h.notifications.Delete(c.Request.Context(), id, recipient); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete notification"})
		return
	}

	_ = h.bus.Publish(c.Request.Context(), feed.Event{
		Collection: feed.CollectionNotifications,
		Op:         feed.OpDelete,
		Key:        recipient,
		RowID:      id,
	})
	c.Status(http.StatusNoContent)
}

// Target resolves where a notification navigates to. A notification
// whose destination no longer exists yields 404, never a dead target.
func (h *NotificationHandler) Target(c *gin.Context) {
	recipient := usernameFromContext(c)
	id := c.Param("id")

	n, err := h.notifications.Get(c.Request.Context(), id, recipient)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notification"})
		return
	}

	target, err := notify.ResolveTarget(c.Request.Context(), h.content, n)
	if err != nil {
		if errors.Is(err, apperrors.ErrNavigationTargetMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "navigation target missing"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve target"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"target": target})
}

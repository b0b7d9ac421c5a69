package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pinmap-service/internal/chat"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/identity"
	"pinmap-service/internal/repositories"
	"pinmap-service/internal/telemetry"
)

// ConversationHandler manages the REST view of conversations. Live
// sessions are handled over websockets; this surface serves list,
// history and bulk delete.
type ConversationHandler struct {
	directory *chat.Directory
	messages  repositories.MessageRepository
	bus       feed.Bus
	audit     *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(directory *chat.Directory, messages repositories.MessageRepository, bus feed.Bus, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{directory: directory, messages: messages, bus: bus, audit: audit}
}

// List returns the caller's conversation summaries.
func (h *ConversationHandler) List(c *gin.Context) {
	self := usernameFromContext(c)

	summaries, err := h.directory.List(c.Request.Context(), self)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// History returns the messages of one conversation grouped by day.
func (h *ConversationHandler) History(c *gin.Context) {
	self := usernameFromContext(c)
	counterparty := c.Param("username")
	if counterparty == "" || counterparty == self {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterparty"})
		return
	}

	convID := identity.ConversationID(self, counterparty)
	msgs, err := h.messages.ListByConversation(c.Request.Context(), convID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": chat.GroupByDay(msgs)})
}

// Delete removes the whole conversation with the counterparty. Either
// participant may do this.
func (h *ConversationHandler) Delete(c *gin.Context) {
	self := usernameFromContext(c)
	counterparty := c.Param("username")
	if counterparty == "" || counterparty == self {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterparty"})
		return
	}

	convID := identity.ConversationID(self, counterparty)
	if err := h.messages.DeleteConversation(c.Request.Context(), convID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}

	_ = h.bus.Publish(c.Request.Context(), feed.Event{
		Collection: feed.CollectionMessages,
		Op:         feed.OpDelete,
		Key:        convID,
	})
	h.audit.Emit(c.Request.Context(), "conversation_deleted", convID, "", requestIDFromContext(c), self)

	c.Status(http.StatusNoContent)
}

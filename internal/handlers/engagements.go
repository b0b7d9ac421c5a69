package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pinmap-service/internal/engagement"
	"pinmap-service/internal/models"
	"pinmap-service/internal/notify"
	"pinmap-service/internal/repositories"
	"pinmap-service/internal/telemetry"
)

// EngagementHandler toggles likes and dispatches the resulting
// notifications.
type EngagementHandler struct {
	engagements repositories.EngagementRepository
	dispatcher  *notify.Dispatcher
	audit       *telemetry.AuditEmitter
}

// NewEngagementHandler builds an EngagementHandler.
func NewEngagementHandler(engagements repositories.EngagementRepository, dispatcher *notify.Dispatcher, audit *telemetry.AuditEmitter) *EngagementHandler {
	return &EngagementHandler{engagements: engagements, dispatcher: dispatcher, audit: audit}
}

// Toggle flips the caller's like on a subject. The response carries the
// resulting (count, liked) pair; on a failed write the pair is the
// restored pre-toggle state and the caller may retry.
func (h *EngagementHandler) Toggle(c *gin.Context) {
	subjectID := c.Param("subject_id")
	actor := usernameFromContext(c)

	var req struct {
		EntityKind string `json:"entity_kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entityKind, err := models.ParseEntityKind(req.EntityKind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reactor := engagement.NewReactor(h.engagements, actor)
	if _, err := reactor.Load(c.Request.Context(), subjectID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load engagement state"})
		return
	}

	state, err := reactor.Toggle(c.Request.Context(), subjectID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "engagement write failed", "state": state})
		return
	}

	if state.Liked {
		recipient, err := h.dispatcher.LikeRecipient(c.Request.Context(), entityKind, subjectID)
		if err != nil {
			log.Printf("engagement: like recipient for %s %s: %v", entityKind, subjectID, err)
		} else if _, err := h.dispatcher.Notify(c.Request.Context(), recipient, actor, models.KindLike, entityKind, subjectID, ""); err != nil {
			log.Printf("engagement: like notification: %v", err)
		}
	}

	h.audit.Emit(c.Request.Context(), "engagement_toggled", subjectID, "", requestIDFromContext(c), actor)
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// CommentHandler creates comments and notifies the parent author.
type CommentHandler struct {
	content    repositories.ContentRepository
	dispatcher *notify.Dispatcher
}

// NewCommentHandler builds a CommentHandler.
func NewCommentHandler(content repositories.ContentRepository, dispatcher *notify.Dispatcher) *CommentHandler {
	return &CommentHandler{content: content, dispatcher: dispatcher}
}

// Create stores a comment under its parent and notifies the parent's
// author.
func (h *CommentHandler) Create(c *gin.Context) {
	author := usernameFromContext(c)

	var req struct {
		ParentKind string `json:"parent_kind" binding:"required"`
		ParentID   string `json:"parent_id" binding:"required"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	parentKind, err := models.ParseEntityKind(req.ParentKind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.content.CreateComment(c.Request.Context(), author, parentKind, req.ParentID, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create comment"})
		return
	}

	recipient, err := h.content.AuthorOf(c.Request.Context(), parentKind, req.ParentID)
	if err != nil {
		if !errors.Is(err, repositories.ErrEntityNotFound) {
			log.Printf("comment: parent author for %s %s: %v", parentKind, req.ParentID, err)
		}
	} else if _, err := h.dispatcher.Notify(c.Request.Context(), recipient, author, models.KindComment, commentEntityKind(parentKind), comment.ID, req.Body); err != nil {
		log.Printf("comment: notification: %v", err)
	}

	c.JSON(http.StatusCreated, comment)
}

// commentEntityKind maps a parent to the entity kind the notification
// carries for the new comment.
func commentEntityKind(parentKind models.EntityKind) models.EntityKind {
	if parentKind == models.EntityBlogPost {
		return models.EntityBlogPostComment
	}
	return models.EntityComment
}

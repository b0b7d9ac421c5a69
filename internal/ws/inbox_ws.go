package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"pinmap-service/internal/auth"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/models"
	"pinmap-service/internal/notify"
	"pinmap-service/internal/observability"
	"pinmap-service/internal/repositories"
)

// InboxWebSocketHandler serves the live notification view. Each
// connection owns one notify.Inbox.
type InboxWebSocketHandler struct {
	notifications repositories.NotificationRepository
	content       repositories.ContentRepository
	bus           feed.Bus
	authenticator *auth.Authenticator
}

// NewInboxWebSocketHandler constructs an InboxWebSocketHandler.
func NewInboxWebSocketHandler(notifications repositories.NotificationRepository, content repositories.ContentRepository, bus feed.Bus, authenticator *auth.Authenticator) *InboxWebSocketHandler {
	return &InboxWebSocketHandler{notifications: notifications, content: content, bus: bus, authenticator: authenticator}
}

type inboxCommand struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Handle upgrades the connection, opens the inbox and pumps refreshes.
func (h *InboxWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("pinmap-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	username, err := validateToken(h.authenticator, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Username:    username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	var writeMu sync.Mutex
	writeEvent := func(ev models.InboxEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("ws: inbox write conn_id=%s: %v", info.ConnID, err)
		}
	}

	inbox := notify.NewInbox(h.notifications, h.content, h.bus, username)
	inbox.OnRefresh(func(items []models.Notification, unread int) {
		observability.IncWSEvent("inbox", "refresh")
		writeEvent(models.InboxEvent{Type: "refresh", Items: items, Unread: unread})
	})

	if err := inbox.Open(ctx); err != nil {
		writeEvent(models.InboxEvent{Type: "error", Error: "could not open inbox"})
		conn.Close()
		return
	}

	observability.IncWSActive("inbox")
	observability.IncWSEvent("inbox", "ws_connect")
	publishConnEvent(ctx, "ws_events.inboxes", "ws_connect", "inbox", username, info, "")

	writeEvent(models.InboxEvent{Type: "snapshot", Items: inbox.Items(), Unread: inbox.Unread()})

	go func() {
		var closeReason string
		defer func() {
			if err := inbox.Close(); err != nil {
				log.Printf("ws: close inbox conn_id=%s: %v", info.ConnID, err)
			}
			observability.DecWSActive("inbox")
			observability.IncWSEvent("inbox", "ws_disconnect")
			publishConnEvent(ctx, "ws_events.inboxes", "ws_disconnect", "inbox", username, info, closeReason)
			conn.Close()
		}()
		for {
			var cmd inboxCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("inbox", "ws_error")
					publishConnEvent(ctx, "ws_events.inboxes", "ws_error", "inbox", username, info, closeReason)
				}
				return
			}

			switch cmd.Type {
			case "mark_read":
				if err := inbox.MarkRead(context.Background(), cmd.ID); err != nil {
					writeEvent(models.InboxEvent{Type: "error", Unread: inbox.Unread(), Error: "could not mark notification read"})
					continue
				}
				writeEvent(models.InboxEvent{Type: "snapshot", Items: inbox.Items(), Unread: inbox.Unread()})
			case "mark_all_read":
				if err := inbox.MarkAllRead(context.Background()); err != nil {
					writeEvent(models.InboxEvent{Type: "error", Unread: inbox.Unread(), Error: "could not mark notifications read"})
					continue
				}
				writeEvent(models.InboxEvent{Type: "snapshot", Items: inbox.Items(), Unread: inbox.Unread()})
			case "delete":
				if err := inbox.Delete(context.Background(), cmd.ID); err != nil {
					writeEvent(models.InboxEvent{Type: "error", Unread: inbox.Unread(), Error: "could not delete notification"})
					continue
				}
				writeEvent(models.InboxEvent{Type: "snapshot", Items: inbox.Items(), Unread: inbox.Unread()})
			default:
				writeEvent(models.InboxEvent{Type: "error", Unread: inbox.Unread(), Error: fmt.Sprintf("unknown command %q", cmd.Type)})
			}
		}
	}()
}

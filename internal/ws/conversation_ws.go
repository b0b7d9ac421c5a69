package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"pinmap-service/internal/auth"
	"pinmap-service/internal/chat"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/models"
	"pinmap-service/internal/observability"
	"pinmap-service/internal/repositories"
)

// ConversationWebSocketHandler serves the live view of one conversation.
// Each connection owns one chat.Session; the session is closed when the
// socket goes away so the feed subscription never outlives the viewer.
type ConversationWebSocketHandler struct {
	messages      repositories.MessageRepository
	bus           feed.Bus
	notifier      chat.Notifier
	authenticator *auth.Authenticator
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(messages repositories.MessageRepository, bus feed.Bus, notifier chat.Notifier, authenticator *auth.Authenticator) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{messages: messages, bus: bus, notifier: notifier, authenticator: authenticator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type sessionCommand struct {
	Type     string `json:"type"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url"`
}

// Handle upgrades the connection, opens the session and pumps events.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	counterparty := c.Param("username")
	if counterparty == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterparty"})
		return
	}

	ctx, span := otel.Tracer("pinmap-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	username, err := h.validateToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if counterparty == username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterparty"})
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
	writeEvent := func(ev models.ChatEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("ws: conversation write conn_id=%s: %v", info.ConnID, err)
		}
	}

	session := chat.NewSession(h.messages, h.bus, h.notifier, username)
	session.OnAppend(func(msg models.Message) {
		observability.IncWSEvent("conversation", "message")
		writeEvent(models.ChatEvent{Type: "message", Message: &msg})
	})

	if err := session.Open(ctx, counterparty); err != nil {
		writeEvent(models.ChatEvent{Type: "error", Error: "could not open conversation"})
		conn.Close()
		return
	}

	observability.IncWSActive("conversation")
	observability.IncWSEvent("conversation", "ws_connect")
	publishConnEvent(ctx, "ws_events.conversations", "ws_connect", "conversation", counterparty, info, "")

	// Open replayed history through OnAppend; mark the boundary so the
	// client knows the backlog is complete.
	writeEvent(models.ChatEvent{Type: "ready"})

	go func() {
		var closeReason string
		defer func() {
			if err := session.Close(); err != nil {
				log.Printf("ws: close session conn_id=%s: %v", info.ConnID, err)
			}
			observability.DecWSActive("conversation")
			observability.IncWSEvent("conversation", "ws_disconnect")
			publishConnEvent(ctx, "ws_events.conversations", "ws_disconnect", "conversation", counterparty, info, closeReason)
			conn.Close()
		}()
		for {
			var cmd sessionCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("conversation", "ws_error")
					publishConnEvent(ctx, "ws_events.conversations", "ws_error", "conversation", counterparty, info, closeReason)
				}
				return
			}

			switch cmd.Type {
			case "send":
				if _, err := session.Send(context.Background(), cmd.Body, cmd.MediaURL); err != nil {
					writeEvent(models.ChatEvent{Type: "error", Error: sendErrorMessage(err)})
				}
			case "delete":
				if err := session.Delete(context.Background(), counterparty); err != nil {
					writeEvent(models.ChatEvent{Type: "error", Error: "could not delete conversation"})
					continue
				}
				writeEvent(models.ChatEvent{Type: "deleted"})
			default:
				writeEvent(models.ChatEvent{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)})
			}
		}
	}()
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "message needs text or media"
	case errors.Is(err, chat.ErrNotSubscribed):
		return "conversation is not open"
	default:
		return "could not send message"
	}
}

func (h *ConversationWebSocketHandler) validateToken(c *gin.Context) (string, error) {
	return validateToken(h.authenticator, c)
}

// validateToken accepts the token from the Authorization header or,
// since browser websocket clients cannot set headers, a query parameter.
func validateToken(authenticator *auth.Authenticator, c *gin.Context) (string, error) {
	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	parts := strings.Split(token, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid token")
	}
	claims, err := authenticator.ValidateToken(parts[1])
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

func publishConnEvent(ctx context.Context, routingKey, event, kind, resourceID string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"username":  info.Username,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

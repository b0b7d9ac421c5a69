package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pinmap-service/internal/chat"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/identity"
	"pinmap-service/internal/mocks"
	"pinmap-service/internal/models"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "alice")
		c.Next()
	})
	r.GET("/conversations", handler.List)
	r.GET("/conversations/:username/messages", handler.History)
	r.DELETE("/conversations/:username", handler.Delete)
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	directory := chat.NewDirectory(messages, nil, nil)
	handler := NewConversationHandler(directory, messages, feed.NewBroker(), nil)
	router := setupConversationRouter(handler)

	bobConv := identity.ConversationID("alice", "bob")
	messages.On("ListForParticipant", mock.Anything, "alice").Return([]models.Message{
		{ID: "m1", ConversationID: bobConv, Sender: "bob", Body: "hi", CreatedAt: time.Now()},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "bob", resp.Conversations[0].Counterparty)
	messages.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	directory := chat.NewDirectory(messages, nil, nil)
	handler := NewConversationHandler(directory, messages, feed.NewBroker(), nil)
	router := setupConversationRouter(handler)

	messages.On("ListForParticipant", mock.Anything, "alice").Return(([]models.Message)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestConversationHistoryGroupedByDay(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(nil, messages, feed.NewBroker(), nil)
	router := setupConversationRouter(handler)

	convID := identity.ConversationID("alice", "bob")
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	messages.On("ListByConversation", mock.Anything, convID).Return([]models.Message{
		{ID: "m1", ConversationID: convID, Sender: "alice", Body: "hi", CreatedAt: day1},
		{ID: "m2", ConversationID: convID, Sender: "bob", Body: "hey", CreatedAt: day1.Add(24 * time.Hour)},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/bob/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Days []models.DayGroup `json:"days"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Days, 2)
	assert.Equal(t, "2026-08-01", resp.Days[0].Date)
	messages.AssertExpectations(t)
}

func TestConversationHistorySelfCounterparty(t *testing.T) {
	handler := NewConversationHandler(nil, new(mocks.MessageRepositoryMock), feed.NewBroker(), nil)
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	bus := feed.NewBroker()
	handler := NewConversationHandler(nil, messages, bus, nil)
	router := setupConversationRouter(handler)

	convID := identity.ConversationID("alice", "bob")
	var events []feed.Event
	sub, err := bus.Subscribe(feed.CollectionMessages, convID, func(ev feed.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	messages.On("DeleteConversation", mock.Anything, convID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, events, 1)
	assert.Equal(t, feed.OpDelete, events[0].Op)
	messages.AssertExpectations(t)
}

func TestDeleteConversationRepoError(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(nil, messages, feed.NewBroker(), nil)
	router := setupConversationRouter(handler)

	messages.On("DeleteConversation", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pinmap-service/internal/identity"
	"pinmap-service/internal/mocks"
	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

func TestDirectoryListGroupsByCounterparty(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	d := NewDirectory(messages, notifications, profiles)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	bobConv := identity.ConversationID("alice", "bob")
	guestConv := identity.ConversationID("alice", "7654321")

	messages.On("ListForParticipant", mock.Anything, "alice").Return([]models.Message{
		{ID: "m1", ConversationID: bobConv, Sender: "alice", Body: "hi bob", CreatedAt: base},
		{ID: "m2", ConversationID: guestConv, Sender: "7654321", Body: "hello", CreatedAt: base.Add(time.Minute)},
		{ID: "m3", ConversationID: bobConv, Sender: "bob", Body: "hi alice", CreatedAt: base.Add(2 * time.Minute)},
	}, nil).Once()
	notifications.On("UnreadMessageCounts", mock.Anything, "alice").Return(map[string]int{"bob": 2}, nil).Once()
	profiles.On("GetByUsername", mock.Anything, "bob").Return(models.Profile{Username: "bob", DisplayName: "Bob"}, nil).Once()

	summaries, err := d.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Newest conversation first.
	assert.Equal(t, "bob", summaries[0].Counterparty)
	assert.Equal(t, "hi alice", summaries[0].LastMessage)
	assert.Equal(t, 2, summaries[0].UnreadCount)
	assert.Equal(t, "Bob", summaries[0].DisplayName)

	// Guests get no profile lookup and no unread entry.
	assert.Equal(t, "7654321", summaries[1].Counterparty)
	assert.Equal(t, 0, summaries[1].UnreadCount)
	assert.Empty(t, summaries[1].DisplayName)

	messages.AssertExpectations(t)
	notifications.AssertExpectations(t)
	profiles.AssertExpectations(t)
	profiles.AssertNotCalled(t, "GetByUsername", mock.Anything, "7654321")
}

func TestDirectoryListUnreadCountsBestEffort(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	d := NewDirectory(messages, notifications, nil)

	bobConv := identity.ConversationID("alice", "bob")
	messages.On("ListForParticipant", mock.Anything, "alice").Return([]models.Message{
		{ID: "m1", ConversationID: bobConv, Sender: "bob", Body: "hi", CreatedAt: time.Now()},
	}, nil).Once()
	notifications.On("UnreadMessageCounts", mock.Anything, "alice").Return((map[string]int)(nil), assert.AnError).Once()

	summaries, err := d.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].UnreadCount)
}

func TestDirectoryListMissingProfileIgnored(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	d := NewDirectory(messages, nil, profiles)

	bobConv := identity.ConversationID("alice", "bob")
	messages.On("ListForParticipant", mock.Anything, "alice").Return([]models.Message{
		{ID: "m1", ConversationID: bobConv, Sender: "bob", Body: "hi", CreatedAt: time.Now()},
	}, nil).Once()
	profiles.On("GetByUsername", mock.Anything, "bob").Return(models.Profile{}, repositories.ErrProfileNotFound).Once()

	summaries, err := d.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].DisplayName)
}

func TestDirectoryListRepoError(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	d := NewDirectory(messages, nil, nil)

	messages.On("ListForParticipant", mock.Anything, "alice").Return(([]models.Message)(nil), assert.AnError).Once()

	_, err := d.List(context.Background(), "alice")
	require.Error(t, err)
}

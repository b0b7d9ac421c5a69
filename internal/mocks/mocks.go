package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, sender, body, mediaURL string) (models.Message, error) {
	args := m.Called(ctx, conversationID, sender, body, mediaURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListForParticipant(ctx context.Context, username string) ([]models.Message, error) {
	args := m.Called(ctx, username)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var stored models.Notification
	if val := args.Get(0); val != nil {
		stored = val.(models.Notification)
	}
	return stored, args.Error(1)
}

func (m *NotificationRepositoryMock) Get(ctx context.Context, id, recipient string) (models.Notification, error) {
	args := m.Called(ctx, id, recipient)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) ListForRecipient(ctx context.Context, recipient string) ([]models.Notification, error) {
	args := m.Called(ctx, recipient)
	var items []models.Notification
	if val := args.Get(0); val != nil {
		items = val.([]models.Notification)
	}
	return items, args.Error(1)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, recipient string) (int, error) {
	args := m.Called(ctx, recipient)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) UnreadMessageCounts(ctx context.Context, recipient string) (map[string]int, error) {
	args := m.Called(ctx, recipient)
	var counts map[string]int
	if val := args.Get(0); val != nil {
		counts = val.(map[string]int)
	}
	return counts, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, id, recipient string) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, recipient string) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) Delete(ctx context.Context, id, recipient string) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

type EngagementRepositoryMock struct {
	mock.Mock
}

var _ repositories.EngagementRepository = (*EngagementRepositoryMock)(nil)

func (m *EngagementRepositoryMock) SetLiked(ctx context.Context, subjectID, actor string, liked bool) error {
	args := m.Called(ctx, subjectID, actor, liked)
	return args.Error(0)
}

func (m *EngagementRepositoryMock) State(ctx context.Context, subjectID, actor string) (int, bool, error) {
	args := m.Called(ctx, subjectID, actor)
	return args.Int(0), args.Bool(1), args.Error(2)
}

type ContentRepositoryMock struct {
	mock.Mock
}

var _ repositories.ContentRepository = (*ContentRepositoryMock)(nil)

func (m *ContentRepositoryMock) AuthorOf(ctx context.Context, kind models.EntityKind, id string) (string, error) {
	args := m.Called(ctx, kind, id)
	return args.String(0), args.Error(1)
}

func (m *ContentRepositoryMock) GetComment(ctx context.Context, id string) (models.Comment, error) {
	args := m.Called(ctx, id)
	var c models.Comment
	if val := args.Get(0); val != nil {
		c = val.(models.Comment)
	}
	return c, args.Error(1)
}

func (m *ContentRepositoryMock) CreateComment(ctx context.Context, author string, parentKind models.EntityKind, parentID, body string) (models.Comment, error) {
	args := m.Called(ctx, author, parentKind, parentID, body)
	var c models.Comment
	if val := args.Get(0); val != nil {
		c = val.(models.Comment)
	}
	return c, args.Error(1)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

var _ repositories.ProfileRepository = (*ProfileRepositoryMock)(nil)

func (m *ProfileRepositoryMock) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	args := m.Called(ctx, username)
	var p models.Profile
	if val := args.Get(0); val != nil {
		p = val.(models.Profile)
	}
	return p, args.Error(1)
}

package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/mocks"
	"pinmap-service/internal/models"
)

func TestNotifyStoresAndPublishes(t *testing.T) {
	store := new(mocks.NotificationRepositoryMock)
	bus := feed.NewBroker()
	d := NewDispatcher(store, nil, bus)
	ctx := context.Background()

	var delivered []feed.Event
	sub, err := bus.Subscribe(feed.CollectionNotifications, "bob", func(ev feed.Event) {
		delivered = append(delivered, ev)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	store.On("Create", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.Recipient == "bob" && n.Sender == "alice" && n.Kind == models.KindLike && n.ID != ""
	})).Return(models.Notification{ID: "n1", Recipient: "bob", Sender: "alice", Kind: models.KindLike}, nil).Once()

	created, err := d.Notify(ctx, "bob", "alice", models.KindLike, models.EntityPin, "pin1", "")
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, delivered, 1)
	assert.Equal(t, feed.OpInsert, delivered[0].Op)
	assert.Equal(t, "n1", delivered[0].RowID)
	require.NotNil(t, delivered[0].Notification)
	assert.Equal(t, "bob", delivered[0].Notification.Recipient)
	store.AssertExpectations(t)
}

func TestNotifySelfIsSilentNoop(t *testing.T) {
	store := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(store, nil, feed.NewBroker())

	created, err := d.Notify(context.Background(), "alice", "alice", models.KindLike, models.EntityPin, "pin1", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = d.Notify(context.Background(), "", "alice", models.KindLike, models.EntityPin, "pin1", "")
	require.NoError(t, err)
	assert.False(t, created)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotifyStoreFailure(t *testing.T) {
	store := new(mocks.NotificationRepositoryMock)
	d := NewDispatcher(store, nil, feed.NewBroker())

	store.On("Create", mock.Anything, mock.Anything).Return(models.Notification{}, assert.AnError).Once()

	created, err := d.Notify(context.Background(), "bob", "alice", models.KindMessage, models.EntityChatMessage, "m1", "hi")
	assert.ErrorIs(t, err, apperrors.ErrRemoteWriteFailed)
	assert.False(t, created)
}

func TestLikeRecipientCommentHop(t *testing.T) {
	content := new(mocks.ContentRepositoryMock)
	d := NewDispatcher(nil, content, feed.NewBroker())
	ctx := context.Background()

	// Liking a comment notifies the comment's author, found by fetching
	// the comment row, not the parent pin's author.
	content.On("GetComment", mock.Anything, "c1").Return(models.Comment{
		ID: "c1", Author: "carol", ParentKind: models.EntityPin, ParentID: "pin1",
	}, nil).Once()

	recipient, err := d.LikeRecipient(ctx, models.EntityComment, "c1")
	require.NoError(t, err)
	assert.Equal(t, "carol", recipient)

	content.AssertNotCalled(t, "AuthorOf", mock.Anything, mock.Anything, mock.Anything)
}

func TestLikeRecipientDirectEntities(t *testing.T) {
	content := new(mocks.ContentRepositoryMock)
	d := NewDispatcher(nil, content, feed.NewBroker())
	ctx := context.Background()

	content.On("AuthorOf", mock.Anything, models.EntityPin, "pin1").Return("bob", nil).Once()
	content.On("AuthorOf", mock.Anything, models.EntityBlogPost, "post1").Return("", assert.AnError).Once()

	recipient, err := d.LikeRecipient(ctx, models.EntityPin, "pin1")
	require.NoError(t, err)
	assert.Equal(t, "bob", recipient)

	_, err = d.LikeRecipient(ctx, models.EntityBlogPost, "post1")
	require.Error(t, err)
	content.AssertExpectations(t)
}

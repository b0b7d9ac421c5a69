package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinmap-service/internal/feed"
	"pinmap-service/internal/identity"
	"pinmap-service/internal/models"
)

// memStore is an in-memory MessageRepository for session tests.
type memStore struct {
	mu     sync.Mutex
	msgs   []models.Message
	nextID int
	now    time.Time

	failCreate bool
}

func newMemStore() *memStore {
	return &memStore{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *memStore) Create(_ context.Context, conversationID, sender, body, mediaURL string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return models.Message{}, fmt.Errorf("insert failed")
	}
	s.nextID++
	s.now = s.now.Add(time.Second)
	msg := models.Message{
		ID:             fmt.Sprintf("m%d", s.nextID),
		ConversationID: conversationID,
		Sender:         sender,
		Body:           body,
		MediaURL:       mediaURL,
		CreatedAt:      s.now,
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memStore) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, msg := range s.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *memStore) ListForParticipant(_ context.Context, username string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, msg := range s.msgs {
		if _, ok := identity.Counterparty(msg.ConversationID, username); ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *memStore) GetMessage(_ context.Context, messageID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.msgs {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return models.Message{}, fmt.Errorf("message not found")
}

func (s *memStore) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.msgs[:0]
	for _, msg := range s.msgs {
		if msg.ConversationID != conversationID {
			kept = append(kept, msg)
		}
	}
	s.msgs = kept
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Notify(_ context.Context, recipient, sender string, kind models.Kind, _ models.EntityKind, _ string, _ string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, fmt.Sprintf("%s:%s->%s", kind, sender, recipient))
	return recipient != "" && recipient != sender, nil
}

func TestSessionOpenLoadsHistory(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	ctx := context.Background()

	convID := identity.ConversationID("alice", "bob")
	_, err := store.Create(ctx, convID, "bob", "hi", "")
	require.NoError(t, err)

	session := NewSession(store, bus, nil, "alice")
	require.NoError(t, session.Open(ctx, "bob"))
	defer session.Close()

	assert.Equal(t, StateSubscribed, session.State())
	assert.Equal(t, "bob", session.Counterparty())
	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
}

func TestSessionSendAppendsViaEchoExactlyOnce(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	session := NewSession(store, bus, notifier, "alice")
	require.NoError(t, session.Open(ctx, "bob"))
	defer session.Close()

	appended := 0
	session.OnAppend(func(models.Message) { appended++ })

	msg, err := session.Send(ctx, "hello", "")
	require.NoError(t, err)

	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.Equal(t, 1, appended)

	// A repeated echo of the same row changes nothing.
	require.NoError(t, bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionMessages,
		Op:         feed.OpInsert,
		Key:        msg.ConversationID,
		RowID:      msg.ID,
		Message:    &msg,
	}))
	assert.Len(t, session.Messages(), 1)
	assert.Equal(t, 1, appended)

	assert.Equal(t, []string{"message:alice->bob"}, notifier.calls)
}

func TestSessionSendRejections(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	ctx := context.Background()

	session := NewSession(store, bus, nil, "alice")
	_, err := session.Send(ctx, "hello", "")
	assert.ErrorIs(t, err, ErrNotSubscribed)

	require.NoError(t, session.Open(ctx, "bob"))
	defer session.Close()

	_, err = session.Send(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, session.Messages())

	// Media without text is a valid message.
	_, err = session.Send(ctx, "", "https://cdn.example/pic.jpg")
	assert.NoError(t, err)
}

func TestSessionSendFailureLeavesViewUnchanged(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	ctx := context.Background()

	session := NewSession(store, bus, nil, "alice")
	require.NoError(t, session.Open(ctx, "bob"))
	defer session.Close()

	store.failCreate = true
	_, err := session.Send(ctx, "hello", "")
	require.Error(t, err)
	assert.Empty(t, session.Messages())

	store.failCreate = false
	_, err = session.Send(ctx, "hello again", "")
	require.NoError(t, err)
	assert.Len(t, session.Messages(), 1)
}

func TestSessionReopenTearsDownPreviousSubscription(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	ctx := context.Background()

	session := NewSession(store, bus, nil, "alice")
	require.NoError(t, session.Open(ctx, "bob"))
	bobConv := identity.ConversationID("alice", "bob")

	require.NoError(t, session.Open(ctx, "carol"))
	defer session.Close()

	// An event for the first conversation must not leak into the view.
	stray := models.Message{ID: "x1", ConversationID: bobConv, Sender: "bob", Body: "stale", CreatedAt: time.Now()}
	require.NoError(t, bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionMessages,
		Op:         feed.OpInsert,
		Key:        bobConv,
		RowID:      stray.ID,
		Message:    &stray,
	}))

	assert.Equal(t, "carol", session.Counterparty())
	assert.Empty(t, session.Messages())
}

func TestSessionDeleteDetaches(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	ctx := context.Background()

	session := NewSession(store, bus, nil, "alice")
	require.NoError(t, session.Open(ctx, "bob"))
	_, err := session.Send(ctx, "hello", "")
	require.NoError(t, err)

	require.NoError(t, session.Delete(ctx, "bob"))
	assert.Equal(t, StateDetached, session.State())

	left, err := store.ListByConversation(ctx, identity.ConversationID("alice", "bob"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSessionGuestConversation(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	session := NewSession(store, bus, notifier, "alice")
	require.NoError(t, session.Open(ctx, "7654321"))
	defer session.Close()

	_, err := session.Send(ctx, "hi", "")
	require.NoError(t, err)

	msgs := session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, identity.ConversationID("alice", "7654321"), msgs[0].ConversationID)
	assert.Equal(t, []string{"message:alice->7654321"}, notifier.calls)

	// Closing and reopening reloads the same single message from the
	// store; the echo already consumed during the live phase does not
	// double it.
	require.NoError(t, session.Close())
	require.NoError(t, session.Open(ctx, "7654321"))
	msgs = session.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, "alice", msgs[0].Sender)
}

func TestSessionCloseIdempotent(t *testing.T) {
	store := newMemStore()
	bus := feed.NewBroker()

	session := NewSession(store, bus, nil, "alice")
	require.NoError(t, session.Open(context.Background(), "bob"))
	assert.NoError(t, session.Close())
	assert.NoError(t, session.Close())
	assert.Equal(t, StateDetached, session.State())
}

func TestSessionOpenUnauthenticated(t *testing.T) {
	session := NewSession(newMemStore(), feed.NewBroker(), nil, "")
	err := session.Open(context.Background(), "bob")
	require.Error(t, err)
}

func TestGroupByDay(t *testing.T) {
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: "m1", CreatedAt: day1},
		{ID: "m2", CreatedAt: day1.Add(time.Hour)},
		{ID: "m3", CreatedAt: day2},
	}

	groups := GroupByDay(msgs)
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-08-01", groups[0].Date)
	assert.Len(t, groups[0].Messages, 2)
	assert.Equal(t, "2026-08-02", groups[1].Date)
	assert.Len(t, groups[1].Messages, 1)

	assert.Empty(t, GroupByDay(nil))
}

// Package chat implements the message channel manager: one session per
// open conversation view, with at most one live feed subscription.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"pinmap-service/internal/apperrors"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/identity"
	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

var (
	ErrNotSubscribed = errors.New("conversation is not open")
	ErrEmptyMessage  = errors.New("message needs text or media")
)

// State of a session's channel.
type State int

const (
	StateDetached State = iota
	StateLoading
	StateSubscribed
)

// Notifier dispatches a notification as a side effect of a send.
// Satisfied by notify.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, recipient, sender string, kind models.Kind, entityKind models.EntityKind, entityID, body string) (bool, error)
}

// Session owns the live view of one conversation. It is an explicit
// handle: the caller opens it, reads from it, and must close it when
// the view goes away, otherwise the feed subscription leaks.
type Session struct {
	store    repositories.MessageRepository
	bus      feed.Bus
	notifier Notifier
	self     string

	mu             sync.Mutex
	state          State
	counterparty   string
	conversationID string
	history        []models.Message
	seen           map[string]struct{}
	pending        []feed.Event
	sub            feed.Subscription
	onAppend       func(models.Message)
}

// NewSession creates a detached session for one user.
func NewSession(store repositories.MessageRepository, bus feed.Bus, notifier Notifier, self string) *Session {
	return &Session{store: store, bus: bus, notifier: notifier, self: self}
}

// OnAppend registers a callback invoked for every message that becomes
// visible. Set it before Open.
func (s *Session) OnAppend(fn func(models.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAppend = fn
}

// Open attaches the session to the conversation with counterparty. Any
// previously open conversation is torn down first: the feed is a shared
// stateful resource and a stale subscription would leak messages from
// another conversation into this view.
func (s *Session) Open(ctx context.Context, counterparty string) error {
	if s.self == "" {
		return apperrors.ErrUnauthenticated
	}
	if s.store == nil || s.bus == nil {
		return apperrors.ErrNotConnected
	}

	convID := identity.ConversationID(s.self, counterparty)

	s.mu.Lock()
	old := s.sub
	s.sub = nil
	s.state = StateLoading
	s.counterparty = counterparty
	s.conversationID = convID
	s.history = nil
	s.seen = nil
	s.pending = nil
	s.mu.Unlock()

	if old != nil {
		if err := old.Unsubscribe(); err != nil {
			log.Printf("chat: unsubscribe previous conversation: %v", err)
		}
	}

	history, err := s.store.ListByConversation(ctx, convID)
	if err != nil {
		s.detach()
		return fmt.Errorf("load conversation history: %w", err)
	}

	sub, err := s.bus.Subscribe(feed.CollectionMessages, convID, s.handleEvent)
	if err != nil {
		s.detach()
		return fmt.Errorf("subscribe conversation feed: %w", err)
	}

	s.mu.Lock()
	if s.conversationID != convID || s.state != StateLoading {
		// Reopened or closed while loading; this attach lost the race.
		s.mu.Unlock()
		return sub.Unsubscribe()
	}
	s.seen = make(map[string]struct{}, len(history))
	s.history = make([]models.Message, 0, len(history))
	for _, msg := range history {
		s.appendLocked(msg)
	}
	// Events that raced with the history fetch went to the pending
	// buffer; the seen set deduplicates any overlap.
	pending := s.pending
	s.pending = nil
	for _, ev := range pending {
		s.applyLocked(ev)
	}
	s.sub = sub
	s.state = StateSubscribed
	s.mu.Unlock()
	return nil
}

func (s *Session) handleEvent(ev feed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Key != s.conversationID {
		return
	}
	switch s.state {
	case StateLoading:
		s.pending = append(s.pending, ev)
	case StateSubscribed:
		s.applyLocked(ev)
	}
}

func (s *Session) applyLocked(ev feed.Event) {
	if ev.Op != feed.OpInsert || ev.Message == nil {
		return
	}
	s.appendLocked(*ev.Message)
}

// appendLocked adds a message unless its id was already delivered. The
// optimistic path and the feed echo may both carry the same logical
// message; exactly one append wins.
func (s *Session) appendLocked(msg models.Message) {
	if _, dup := s.seen[msg.ID]; dup {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	s.seen[msg.ID] = struct{}{}

	// Keep created_at non-decreasing; a delayed echo may arrive after a
	// newer message.
	i := len(s.history)
	for i > 0 && s.history[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	s.history = append(s.history, models.Message{})
	copy(s.history[i+1:], s.history[i:])
	s.history[i] = msg

	if s.onAppend != nil {
		s.onAppend(msg)
	}
}

// Send stores a new message. The local view is NOT updated here: the
// feed echo performs the append, so ordering has a single source of
// truth. On failure nothing changes and the caller may retry.
func (s *Session) Send(ctx context.Context, text, mediaURL string) (models.Message, error) {
	s.mu.Lock()
	if s.state != StateSubscribed {
		s.mu.Unlock()
		return models.Message{}, ErrNotSubscribed
	}
	convID := s.conversationID
	counterparty := s.counterparty
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" && mediaURL == "" {
		return models.Message{}, ErrEmptyMessage
	}

	msg, err := s.store.Create(ctx, convID, s.self, text, mediaURL)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}

	if err := s.bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionMessages,
		Op:         feed.OpInsert,
		Key:        convID,
		RowID:      msg.ID,
		Message:    &msg,
	}); err != nil {
		log.Printf("chat: publish message event: %v", err)
	}

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, counterparty, s.self, models.KindMessage, models.EntityChatMessage, msg.ID, text); err != nil {
			log.Printf("chat: message notification: %v", err)
		}
	}
	return msg, nil
}

// Delete removes every message of the conversation with counterparty in
// one bulk operation. If that conversation is currently open, the
// session detaches.
func (s *Session) Delete(ctx context.Context, counterparty string) error {
	convID := identity.ConversationID(s.self, counterparty)
	if err := s.store.DeleteConversation(ctx, convID); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrRemoteWriteFailed, err)
	}
	if err := s.bus.Publish(ctx, feed.Event{
		Collection: feed.CollectionMessages,
		Op:         feed.OpDelete,
		Key:        convID,
	}); err != nil {
		log.Printf("chat: publish conversation delete: %v", err)
	}

	s.mu.Lock()
	open := s.conversationID == convID && s.state != StateDetached
	s.mu.Unlock()
	if open {
		return s.Close()
	}
	return nil
}

// Close tears down the subscription and detaches. Idempotent.
func (s *Session) Close() error {
	return s.detach()
}

func (s *Session) detach() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.state = StateDetached
	s.counterparty = ""
	s.conversationID = ""
	s.history = nil
	s.seen = nil
	s.pending = nil
	s.mu.Unlock()

	// Unsubscribe outside the session lock; the broker may be delivering
	// into handleEvent concurrently, which takes the same lock. Events
	// that slip through before deregistration see StateDetached and are
	// dropped.
	if sub != nil {
		return sub.Unsubscribe()
	}
	return nil
}

// State returns the channel state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Counterparty returns the open conversation's other participant.
func (s *Session) Counterparty() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterparty
}

// Messages returns a snapshot of the visible history.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.history))
	copy(out, s.history)
	return out
}

// MessagesByDay returns the visible history grouped by calendar day.
func (s *Session) MessagesByDay() []models.DayGroup {
	return GroupByDay(s.Messages())
}

// GroupByDay partitions messages by the calendar day of created_at.
// Pure read-side projection; input must already be in created_at order.
func GroupByDay(msgs []models.Message) []models.DayGroup {
	var groups []models.DayGroup
	for _, msg := range msgs {
		date := msg.CreatedAt.Format("2006-01-02")
		if n := len(groups); n > 0 && groups[n-1].Date == date {
			groups[n-1].Messages = append(groups[n-1].Messages, msg)
			continue
		}
		groups = append(groups, models.DayGroup{Date: date, Messages: []models.Message{msg}})
	}
	return groups
}

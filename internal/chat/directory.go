package chat

import (
	"context"
	"errors"
	"log"
	"sort"

	"pinmap-service/internal/identity"
	"pinmap-service/internal/models"
	"pinmap-service/internal/repositories"
)

// Directory derives conversation summaries for a user. Nothing here is
// stored; every call recomputes from the message set.
type Directory struct {
	messages      repositories.MessageRepository
	notifications repositories.NotificationRepository
	profiles      repositories.ProfileRepository
}

// NewDirectory builds a Directory. notifications and profiles may be
// nil; unread counts and display names are best-effort.
func NewDirectory(messages repositories.MessageRepository, notifications repositories.NotificationRepository, profiles repositories.ProfileRepository) *Directory {
	return &Directory{messages: messages, notifications: notifications, profiles: profiles}
}

// List groups all messages involving self by the other participant and
// picks the newest message per counterparty. Unread counts come from
// unread message notifications; there is no per-message read tracking,
// so zero is a legitimate value.
func (d *Directory) List(ctx context.Context, self string) ([]models.ConversationSummary, error) {
	msgs, err := d.messages.ListForParticipant(ctx, self)
	if err != nil {
		return nil, err
	}

	bySender := map[string]*models.ConversationSummary{}
	var order []string
	for _, msg := range msgs {
		counterparty, ok := identity.Counterparty(msg.ConversationID, self)
		if !ok {
			continue
		}
		summary, exists := bySender[counterparty]
		if !exists {
			summary = &models.ConversationSummary{Counterparty: counterparty}
			bySender[counterparty] = summary
			order = append(order, counterparty)
		}
		// Messages arrive in created_at order, so the last one wins.
		if !msg.CreatedAt.Before(summary.LastMessageTime) {
			summary.LastMessage = msg.Body
			summary.LastMessageTime = msg.CreatedAt
		}
	}

	unread := map[string]int{}
	if d.notifications != nil {
		unread, err = d.notifications.UnreadMessageCounts(ctx, self)
		if err != nil {
			log.Printf("chat: unread counts unavailable: %v", err)
			unread = map[string]int{}
		}
	}

	result := make([]models.ConversationSummary, 0, len(order))
	for _, counterparty := range order {
		summary := *bySender[counterparty]
		summary.UnreadCount = unread[counterparty]
		if d.profiles != nil && !identity.IsGuest(counterparty) {
			profile, err := d.profiles.GetByUsername(ctx, counterparty)
			switch {
			case err == nil:
				summary.DisplayName = profile.DisplayName
			case !errors.Is(err, repositories.ErrProfileNotFound):
				log.Printf("chat: profile lookup %q: %v", counterparty, err)
			}
		}
		result = append(result, summary)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastMessageTime.After(result[j].LastMessageTime)
	})
	return result, nil
}

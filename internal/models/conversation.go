package models

import "time"

// ConversationSummary is the derived per-counterparty view returned by
// the conversation list. It is never stored.
type ConversationSummary struct {
	Counterparty    string    `json:"counterparty"`
	DisplayName     string    `json:"display_name,omitempty"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

// DayGroup partitions messages by calendar day for presentation.
type DayGroup struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

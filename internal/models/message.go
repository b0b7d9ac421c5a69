package models

import "time"

// Message is a direct message stored under its derived conversation id.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	Sender         string    `db:"sender" json:"sender"`
	Body           string    `db:"body" json:"body"`
	MediaURL       string    `db:"media_url" json:"media_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is emitted over conversation WebSocket connections.
type ChatEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

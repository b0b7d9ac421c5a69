package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pinmap-service/internal/identity"
	"pinmap-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, sender, body, mediaURL string) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	ListForParticipant(ctx context.Context, username string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message under its conversation id.
func (r *MessageRepo) Create(ctx context.Context, conversationID, sender, body, mediaURL string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, conversation_id, sender, body, media_url) VALUES ($1, $2, $3, $4, $5)
        RETURNING id, conversation_id, sender, body, media_url, created_at`, uuid.NewString(), conversationID, sender, body, mediaURL).
		Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Body, &msg.MediaURL, &msg.CreatedAt)
	return msg, err
}

// ListByConversation returns the full history in created_at order.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender, body, media_url, created_at
        FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC`, conversationID)
	return msgs, err
}

// ListForParticipant returns every message in any conversation that
// contains the user, regardless of sender, ordered by created_at.
func (r *MessageRepo) ListForParticipant(ctx context.Context, username string) ([]models.Message, error) {
	first, second := identity.ConversationPatterns(username)
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_id, sender, body, media_url, created_at
        FROM messages WHERE conversation_id LIKE $1 OR conversation_id LIKE $2 ORDER BY created_at ASC`, first, second)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, conversation_id, sender, body, media_url, created_at
        FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteConversation removes every message of one conversation in a
// single bulk statement.
func (r *MessageRepo) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=$1`, conversationID)
	return err
}

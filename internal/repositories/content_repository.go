package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"pinmap-service/internal/models"
)

var ErrEntityNotFound = errors.New("entity not found")

// ContentRepository resolves authors and parents of the entities the
// dispatcher and the navigation resolver point at. The content itself
// (pins, posts, listings) is managed elsewhere.
type ContentRepository interface {
	AuthorOf(ctx context.Context, kind models.EntityKind, id string) (string, error)
	GetComment(ctx context.Context, id string) (models.Comment, error)
	CreateComment(ctx context.Context, author string, parentKind models.EntityKind, parentID, body string) (models.Comment, error)
}

// ContentRepo is a sqlx-backed repository.
type ContentRepo struct {
	db *sqlx.DB
}

// NewContentRepo constructs ContentRepo.
func NewContentRepo(db *sqlx.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// AuthorOf returns the author of the given entity.
func (r *ContentRepo) AuthorOf(ctx context.Context, kind models.EntityKind, id string) (string, error) {
	var query string
	switch kind {
	case models.EntityPin:
		query = `SELECT author FROM pins WHERE id=$1`
	case models.EntityBlogPost:
		query = `SELECT author FROM blog_posts WHERE id=$1`
	case models.EntityMarketplaceItem:
		query = `SELECT author FROM marketplace_items WHERE id=$1`
	case models.EntityComment, models.EntityBlogPostComment:
		query = `SELECT author FROM comments WHERE id=$1`
	case models.EntityChatMessage:
		query = `SELECT sender FROM messages WHERE id=$1`
	default:
		return "", fmt.Errorf("no author lookup for entity kind %q", kind)
	}

	var author string
	err := r.db.GetContext(ctx, &author, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEntityNotFound
	}
	return author, err
}

// GetComment retrieves a comment with its parent reference.
func (r *ContentRepo) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	err := r.db.GetContext(ctx, &c, `SELECT id, author, parent_kind, parent_id, body, created_at
        FROM comments WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrEntityNotFound
	}
	return c, err
}

// CreateComment stores a comment under its parent entity.
func (r *ContentRepo) CreateComment(ctx context.Context, author string, parentKind models.EntityKind, parentID, body string) (models.Comment, error) {
	var c models.Comment
	err := r.db.QueryRowxContext(ctx, `INSERT INTO comments (id, author, parent_kind, parent_id, body) VALUES ($1, $2, $3, $4, $5)
        RETURNING id, author, parent_kind, parent_id, body, created_at`, uuid.NewString(), author, parentKind, parentID, body).
		Scan(&c.ID, &c.Author, &c.ParentKind, &c.ParentID, &c.Body, &c.CreatedAt)
	return c, err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"pinmap-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository looks up registered users. Guests never have a row
// here; callers skip the lookup for them.
type ProfileRepository interface {
	GetByUsername(ctx context.Context, username string) (models.Profile, error)
}

// ProfileRepo is a sqlx-backed repository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByUsername retrieves a profile.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT username, display_name, avatar_url FROM profiles WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

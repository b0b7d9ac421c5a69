package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EngagementRepository is the authoritative like store.
type EngagementRepository interface {
	SetLiked(ctx context.Context, subjectID, actor string, liked bool) error
	State(ctx context.Context, subjectID, actor string) (count int, liked bool, err error)
}

// EngagementRepo is a sqlx-backed repository.
type EngagementRepo struct {
	db *sqlx.DB
}

// NewEngagementRepo constructs EngagementRepo.
func NewEngagementRepo(db *sqlx.DB) *EngagementRepo {
	return &EngagementRepo{db: db}
}

// SetLiked upserts or deletes the single record for the
// (subject, actor) pair. Both directions are idempotent: the unique
// index guarantees at most one row regardless of how often either side
// runs.
func (r *EngagementRepo) SetLiked(ctx context.Context, subjectID, actor string, liked bool) error {
	if liked {
		_, err := r.db.ExecContext(ctx, `INSERT INTO engagements (id, subject_id, actor) VALUES ($1, $2, $3)
            ON CONFLICT (subject_id, actor) DO NOTHING`, uuid.NewString(), subjectID, actor)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM engagements WHERE subject_id=$1 AND actor=$2`, subjectID, actor)
	return err
}

// State returns the authoritative count and whether the actor has a
// record on the subject.
func (r *EngagementRepo) State(ctx context.Context, subjectID, actor string) (int, bool, error) {
	var row struct {
		Count int  `db:"count"`
		Liked bool `db:"liked"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT COUNT(*) AS count,
        COUNT(*) FILTER (WHERE actor=$2) > 0 AS liked
        FROM engagements WHERE subject_id=$1`, subjectID, actor)
	return row.Count, row.Liked, err
}

package models

import "time"

// Engagement is a like record. At most one row exists per
// (subject_id, actor) pair; toggling deletes or recreates it.
type Engagement struct {
	ID        string    `db:"id" json:"id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

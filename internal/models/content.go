package models

import "time"

// Profile is the stored profile of a registered user. Guests have none.
type Profile struct {
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// Comment belongs to a pin, blog post or marketplace item. Likes on a
// comment notify its author; navigation resolves through its parent.
type Comment struct {
	ID         string     `db:"id" json:"id"`
	Author     string     `db:"author" json:"author"`
	ParentKind EntityKind `db:"parent_kind" json:"parent_kind"`
	ParentID   string     `db:"parent_id" json:"parent_id"`
	Body       string     `db:"body" json:"body"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

package models

import (
	"time"
)

// User represents a registered profile. The profile fields are set at
// registration and never change; SystemMessage is overwritten each time
// the user repeats the image-upload flow.
type User struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Username      string    `db:"username" json:"username"`
	DOB           time.Time `db:"dob" json:"dob"`
	SystemMessage string    `db:"system_message" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ChatTurn is one persisted message of a conversation. Turns are
// append-only; rows are never updated or deleted.
type ChatTurn struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"` // "system", "user" or "assistant"
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

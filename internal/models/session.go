package models

import "time"

// Session is the persisted conversation state for a user: the step the user
// is parked at plus the flow payload as JSON. One row per user.
type Session struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Step      string    `db:"step" json:"step"`
	Payload   []byte    `db:"payload" json:"payload"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

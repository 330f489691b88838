package models

import "time"

// User is a messenger account known to the bot. PlatformID is the id the
// messenger assigns, Phone is set once the user shares a contact card.
type User struct {
	ID         string    `db:"id" json:"id"`
	PlatformID string    `db:"platform_id" json:"platform_id"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// HasPhone reports whether a non-empty phone is on file.
func (u User) HasPhone() bool {
	return u.Phone != nil && *u.Phone != ""
}

package models

import "time"

// Notification statuses, in feed priority order.
const (
	NotificationUnread   = "UNREAD"
	NotificationAction   = "ACTION"
	NotificationRead     = "READ"
	NotificationResolved = "RESOLVED"
	NotificationArchived = "ARCHIVED"
)

// Notification types.
const (
	NotifyOwnerWaiting        = "OWNER_WAITING"
	NotifyOwnerReview         = "OWNER_REVIEW"
	NotifyOwnerApproved       = "OWNER_APPROVED"
	NotifyOwnerDeclined       = "OWNER_DECLINED"
	NotifyContactShareRequest = "CONTACT_SHARE_REQUEST"
	NotifyContactAvailable    = "CONTACT_AVAILABLE"
	NotifyListingPublished    = "LISTING_PUBLISHED"
	NotifyMatchFound          = "MATCH_FOUND"
	NotifyVolunteerAssigned   = "VOLUNTEER_ASSIGNED"
	NotifyVolunteerActive     = "VOLUNTEER_ACTIVE"
)

// Notification is a durable record of something the user should see. The row
// is the source of truth, push delivery is best effort.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	ChatID    *string    `db:"chat_id" json:"chat_id,omitempty"`
	ListingID *string    `db:"listing_id" json:"listing_id,omitempty"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Payload   []byte     `db:"payload" json:"payload,omitempty"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}

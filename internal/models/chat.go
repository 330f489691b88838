package models

import "time"

// Chat types.
const (
	ChatOwnerCheck = "OWNER_CHECK"
	ChatDialog     = "DIALOG"
)

// Chat statuses. DECLINED and CLOSED are terminal.
const (
	ChatPending  = "PENDING"
	ChatActive   = "ACTIVE"
	ChatDeclined = "DECLINED"
	ChatClosed   = "CLOSED"
)

// Chat member roles.
const (
	RoleClaimant = "CLAIMANT"
	RoleHolder   = "HOLDER"
	RoleObserver = "OBSERVER"
)

// Chat message statuses.
const (
	MessageSent    = "SENT"
	MessageBlocked = "BLOCKED"
)

// Chat is an owner-verification conversation between the person holding an
// item and the person claiming it.
type Chat struct {
	ID             string     `db:"id" json:"id"`
	LostListingID  *string    `db:"lost_listing_id" json:"lost_listing_id,omitempty"`
	FoundListingID *string    `db:"found_listing_id" json:"found_listing_id,omitempty"`
	InitiatorID    string     `db:"initiator_id" json:"initiator_id"`
	HolderID       string     `db:"holder_id" json:"holder_id"`
	ClaimantID     string     `db:"claimant_id" json:"claimant_id"`
	Type           string     `db:"type" json:"type"`
	Status         string     `db:"status" json:"status"`
	LastMessageAt  *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the chat can no longer change state.
func (c Chat) Terminal() bool {
	return c.Status == ChatDeclined || c.Status == ChatClosed
}

// ChatMember ties a user to a chat with a role.
type ChatMember struct {
	ChatID   string    `db:"chat_id" json:"chat_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ChatMessage is a transcript entry. Meta carries structured context such as
// the question index an answer responds to. SenderID is nil for system
// messages.
type ChatMessage struct {
	ID        string    `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	SenderID  *string   `db:"sender_id" json:"sender_id,omitempty"`
	Body      string    `db:"body" json:"body"`
	Meta      []byte    `db:"meta" json:"meta,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

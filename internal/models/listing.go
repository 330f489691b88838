package models

import "time"

// Listing types.
const (
	ListingLost  = "LOST"
	ListingFound = "FOUND"
)

// Listing statuses.
const (
	ListingActive = "ACTIVE"
	ListingClosed = "CLOSED"
)

// Listing is a published lost or found item report.
type Listing struct {
	ID          string     `db:"id" json:"id"`
	AuthorID    string     `db:"author_id" json:"author_id"`
	Type        string     `db:"type" json:"type"`
	Category    string     `db:"category" json:"category"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Lat         *float64   `db:"lat" json:"lat,omitempty"`
	Lng         *float64   `db:"lng" json:"lng,omitempty"`
	District    *string    `db:"district" json:"district,omitempty"`
	OccurredAt  *time.Time `db:"occurred_at" json:"occurred_at,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Photo is an attachment stored for a listing, at most three per listing.
type Photo struct {
	ID        string    `db:"id" json:"id"`
	ListingID string    `db:"listing_id" json:"listing_id"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Secret is an encrypted verification question/answer pair attached to a
// FOUND listing. Cipher holds the vault envelope, never plaintext.
type Secret struct {
	ID        string    `db:"id" json:"id"`
	ListingID string    `db:"listing_id" json:"listing_id"`
	Cipher    string    `db:"cipher" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SecretPair is a decrypted question/answer pair. It exists only in memory.
type SecretPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Match links a LOST listing to a FOUND listing with a relevance score.
type Match struct {
	ID        string    `db:"id" json:"id"`
	LostID    string    `db:"lost_id" json:"lost_id"`
	FoundID   string    `db:"found_id" json:"found_id"`
	Score     int       `db:"score" json:"score"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// VolunteerAssignment statuses.
const (
	AssignmentActive    = "ACTIVE"
	AssignmentCompleted = "COMPLETED"
	AssignmentCancelled = "CANCELLED"
)

// VolunteerAssignment records a volunteer taking on a search for a listing.
type VolunteerAssignment struct {
	ID                  string     `db:"id" json:"id"`
	ListingID           string     `db:"listing_id" json:"listing_id"`
	VolunteerID         string     `db:"volunteer_id" json:"volunteer_id"`
	Status              string     `db:"status" json:"status"`
	OwnerNotifiedAt     *time.Time `db:"owner_notified_at" json:"owner_notified_at,omitempty"`
	VolunteerNotifiedAt *time.Time `db:"volunteer_notified_at" json:"volunteer_notified_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

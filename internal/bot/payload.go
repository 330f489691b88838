package bot

import (
	"encoding/json"
	"time"

	"lostfound-bot/internal/models"
)

// GeoPoint is a coordinate pair. Precision marks how much the point was
// coarsened before it became publishable.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Precision string  `json:"precision,omitempty"`
}

// PhotoAttachment is one uploaded image reference from the messenger.
type PhotoAttachment struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Token string `json:"token,omitempty"`
}

// SecretHint is an attribute answer earmarked for the secrets step.
type SecretHint struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Draft accumulates a listing while the user walks the intake wizard.
// Attributes maps field key to the answer; a nil value means the field was
// answered with /skip, an absent key means it was not asked yet.
type Draft struct {
	Type             string              `json:"type"`
	Category         string              `json:"category,omitempty"`
	Attributes       map[string]*string  `json:"attributes,omitempty"`
	PendingSecrets   []SecretHint        `json:"pendingSecrets,omitempty"`
	Photos           []PhotoAttachment   `json:"photos,omitempty"`
	Location         *GeoPoint           `json:"location,omitempty"`
	LocationOriginal *GeoPoint           `json:"locationOriginal,omitempty"`
	LocationNote     string              `json:"locationNote,omitempty"`
	LocationMode     string              `json:"locationMode,omitempty"`
	Transit          string              `json:"transit,omitempty"`
	OccurredAt       *time.Time          `json:"occurredAt,omitempty"`
	SecretEntries    []models.SecretPair `json:"secretEntries,omitempty"`
	EncryptedSecrets []string            `json:"encryptedSecrets,omitempty"`
}

// Meta carries the wizard bookkeeping that is not part of the draft itself.
type Meta struct {
	StartedAt           time.Time `json:"startedAt,omitempty"`
	PhotoAcknowledged   bool      `json:"photoAcknowledged,omitempty"`
	LegalAccepted       bool      `json:"legalAccepted,omitempty"`
	LocationMode        string    `json:"locationMode,omitempty"`
	LocationStage       string    `json:"locationStage,omitempty"`
	CurrentAttributeKey string    `json:"currentAttributeKey,omitempty"`
}

// OwnerQuestion is one verification question pulled from a FOUND listing.
type OwnerQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// OwnerAnswer pairs a question with the claimant's answer.
type OwnerAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// OwnerCheck is the state of one verification session.
type OwnerCheck struct {
	ChatID         string          `json:"chatId"`
	LostListingID  string          `json:"lostListingId"`
	FoundListingID string          `json:"foundListingId"`
	HolderID       string          `json:"holderId"`
	ClaimantID     string          `json:"claimantId"`
	Questions      []OwnerQuestion `json:"questions,omitempty"`
	Answers        []OwnerAnswer   `json:"answers,omitempty"`
	Index          int             `json:"index"`
	LostTitle      string          `json:"lostTitle,omitempty"`
	FoundTitle     string          `json:"foundTitle,omitempty"`
}

// VolunteerState is the volunteer flow scratchpad.
type VolunteerState struct {
	Location          *GeoPoint `json:"location,omitempty"`
	SelectedListingID string    `json:"selectedListingId,omitempty"`
}

// MyState is the listing management scratchpad.
type MyState struct {
	EditingID string `json:"editingId,omitempty"`
}

// Payload is the persisted flow state. Handlers never mutate the payload
// they were handed; they Clone it, change the copy and pass that forward.
type Payload struct {
	Flow       string          `json:"flow"`
	Listing    *Draft          `json:"listing,omitempty"`
	Meta       *Meta           `json:"meta,omitempty"`
	OwnerCheck *OwnerCheck     `json:"ownerCheck,omitempty"`
	Volunteer  *VolunteerState `json:"volunteer,omitempty"`
	My         *MyState        `json:"my,omitempty"`
}

func newPayload(flow string) *Payload {
	if flow == flowMy {
		return &Payload{Flow: flow, My: &MyState{}}
	}
	return &Payload{
		Flow:    flow,
		Listing: newDraft(flow),
		Meta:    &Meta{StartedAt: time.Now().UTC()},
	}
}

func newDraft(flow string) *Draft {
	listingType := models.ListingFound
	if flow == flowLost {
		listingType = models.ListingLost
	}
	return &Draft{Type: listingType, Attributes: map[string]*string{}}
}

// Clone returns a deep copy of the payload.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := &Payload{Flow: p.Flow}
	out.Listing = p.Listing.clone()
	if p.Meta != nil {
		meta := *p.Meta
		out.Meta = &meta
	}
	if p.OwnerCheck != nil {
		oc := *p.OwnerCheck
		oc.Questions = append([]OwnerQuestion(nil), p.OwnerCheck.Questions...)
		oc.Answers = append([]OwnerAnswer(nil), p.OwnerCheck.Answers...)
		out.OwnerCheck = &oc
	}
	if p.Volunteer != nil {
		v := *p.Volunteer
		if p.Volunteer.Location != nil {
			loc := *p.Volunteer.Location
			v.Location = &loc
		}
		out.Volunteer = &v
	}
	if p.My != nil {
		my := *p.My
		out.My = &my
	}
	return out
}

func (d *Draft) clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	if d.Attributes != nil {
		out.Attributes = make(map[string]*string, len(d.Attributes))
		for k, v := range d.Attributes {
			if v == nil {
				out.Attributes[k] = nil
				continue
			}
			value := *v
			out.Attributes[k] = &value
		}
	}
	out.PendingSecrets = append([]SecretHint(nil), d.PendingSecrets...)
	out.Photos = append([]PhotoAttachment(nil), d.Photos...)
	out.SecretEntries = append([]models.SecretPair(nil), d.SecretEntries...)
	out.EncryptedSecrets = append([]string(nil), d.EncryptedSecrets...)
	if d.Location != nil {
		loc := *d.Location
		out.Location = &loc
	}
	if d.LocationOriginal != nil {
		loc := *d.LocationOriginal
		out.LocationOriginal = &loc
	}
	if d.OccurredAt != nil {
		t := *d.OccurredAt
		out.OccurredAt = &t
	}
	return &out
}

// ensure helpers fill missing sub-structures on a cloned payload.

func (p *Payload) ensureListing(flow string) *Draft {
	if p.Flow == "" {
		p.Flow = flow
	}
	if p.Listing == nil {
		p.Listing = newDraft(flow)
	}
	if p.Listing.Attributes == nil {
		p.Listing.Attributes = map[string]*string{}
	}
	return p.Listing
}

func (p *Payload) ensureMeta() *Meta {
	if p.Meta == nil {
		p.Meta = &Meta{}
	}
	return p.Meta
}

func (p *Payload) ensureVolunteer() *VolunteerState {
	if p.Flow == "" {
		p.Flow = flowVolunteer
	}
	if p.Volunteer == nil {
		p.Volunteer = &VolunteerState{}
	}
	return p.Volunteer
}

func (p *Payload) ensureMy() *MyState {
	p.Flow = flowMy
	if p.My == nil {
		p.My = &MyState{}
	}
	return p.My
}

func marshalPayload(p *Payload) []byte {
	if p == nil {
		return []byte("{}")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func unmarshalPayload(raw []byte) *Payload {
	if len(raw) == 0 {
		return nil
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.Listing != nil && p.Listing.Category != "" {
		p.Listing.Category = normalizeCategory(p.Listing.Category)
	}
	return &p
}

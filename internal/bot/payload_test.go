package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound-bot/internal/models"
)

func TestNewPayloadShapes(t *testing.T) {
	lost := newPayload(flowLost)
	require.NotNil(t, lost.Listing)
	assert.Equal(t, models.ListingLost, lost.Listing.Type)
	assert.NotNil(t, lost.Meta)
	assert.False(t, lost.Meta.StartedAt.IsZero())

	found := newPayload(flowFound)
	assert.Equal(t, models.ListingFound, found.Listing.Type)

	my := newPayload(flowMy)
	assert.Nil(t, my.Listing)
	require.NotNil(t, my.My)
}

func TestCloneIsDeep(t *testing.T) {
	answer := "синяя куртка"
	occurred := time.Date(2025, 5, 12, 14, 0, 0, 0, time.UTC)
	point := GeoPoint{Latitude: 55.75, Longitude: 37.61}

	original := &Payload{
		Flow: flowLost,
		Listing: &Draft{
			Type:          models.ListingLost,
			Category:      "wear",
			Attributes:    map[string]*string{"color": &answer, "brand": nil},
			Photos:        []PhotoAttachment{{ID: "p1", URL: "http://x/1"}},
			Location:      &point,
			OccurredAt:    &occurred,
			SecretEntries: []models.SecretPair{{Question: "Секрет 1", Answer: "шов"}},
		},
		Meta: &Meta{CurrentAttributeKey: "color"},
		OwnerCheck: &OwnerCheck{
			ChatID:    "c1",
			Questions: []OwnerQuestion{{ID: "s1", Question: "Какой брелок?"}},
		},
	}

	clone := original.Clone()

	*clone.Listing.Attributes["color"] = "другое"
	clone.Listing.Attributes["size"] = nil
	clone.Listing.Photos[0].URL = "http://x/2"
	clone.Listing.Location.Latitude = 0
	clone.Listing.SecretEntries[0].Answer = "изменено"
	clone.Meta.CurrentAttributeKey = ""
	clone.OwnerCheck.Questions[0].Question = "другой"

	assert.Equal(t, "синяя куртка", *original.Listing.Attributes["color"])
	assert.NotContains(t, original.Listing.Attributes, "size")
	assert.Equal(t, "http://x/1", original.Listing.Photos[0].URL)
	assert.Equal(t, 55.75, original.Listing.Location.Latitude)
	assert.Equal(t, "шов", original.Listing.SecretEntries[0].Answer)
	assert.Equal(t, "color", original.Meta.CurrentAttributeKey)
	assert.Equal(t, "Какой брелок?", original.OwnerCheck.Questions[0].Question)
}

func TestMarshalRoundTripNormalizesCategory(t *testing.T) {
	p := &Payload{Flow: flowFound, Listing: &Draft{Type: models.ListingFound, Category: "phone"}}
	restored := unmarshalPayload(marshalPayload(p))
	require.NotNil(t, restored)
	assert.Equal(t, "electronics", restored.Listing.Category)
}

func TestUnmarshalPayloadBadInput(t *testing.T) {
	assert.Nil(t, unmarshalPayload(nil))
	assert.Nil(t, unmarshalPayload([]byte("not json")))
}

func TestPrepareAttributesWalksFields(t *testing.T) {
	p := newPayload(flowLost)
	p.Listing.Category = "keys"

	field := p.prepareAttributes(flowLost)
	require.NotNil(t, field)
	assert.Equal(t, "key_type", field.Key)
	assert.Equal(t, "key_type", p.Meta.CurrentAttributeKey)

	answer := "от квартиры"
	p.Listing.Attributes["key_type"] = &answer
	p.Meta.CurrentAttributeKey = ""

	field = p.prepareAttributes(flowLost)
	require.NotNil(t, field)
	assert.Equal(t, "bundle", field.Key)

	p.Listing.Attributes["bundle"] = nil
	p.Listing.Attributes["unique"] = nil
	p.Meta.CurrentAttributeKey = ""

	assert.Nil(t, p.prepareAttributes(flowLost))
	assert.Empty(t, p.Meta.CurrentAttributeKey)
}

func TestBuildAttributeLinesMarksSkipped(t *testing.T) {
	answer := "от квартиры"
	draft := &Draft{
		Category:   "keys",
		Attributes: map[string]*string{"key_type": &answer, "bundle": nil},
	}
	lines := buildAttributeLines(draft)
	require.Len(t, lines, 2)
	assert.Equal(t, "Тип ключей: от квартиры", lines[0])
	assert.Equal(t, "Связка / аксессуары: (пропущено)", lines[1])
}

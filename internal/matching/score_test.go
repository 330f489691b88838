package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lostfound-bot/internal/models"
)

func listing(category, title string, lat, lng float64, occurred time.Time) models.Listing {
	return models.Listing{
		Category:   category,
		Title:      title,
		Lat:        &lat,
		Lng:        &lng,
		OccurredAt: &occurred,
	}
}

func TestScorePerfectMatch(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	lost := listing("pet", "рыжий кот барсик красный ошейник", 55.7510, 37.6170, now)
	found := listing("pet", "рыжий кот барсик красный ошейник", 55.7512, 37.6172, now.Add(time.Hour))

	// 25 category + 20 time + 30 geo + 25 title cap
	assert.Equal(t, 100, Score(lost, found))
}

func TestScoreCategoryMismatch(t *testing.T) {
	now := time.Now()
	lost := listing("pet", "кот", 55.75, 37.61, now)
	found := listing("keys", "ключи", 55.75, 37.61, now)

	assert.Equal(t, 50, Score(lost, found)) // time 20 + geo 30, no overlap
}

func TestScoreTimeDecay(t *testing.T) {
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	lost := listing("pet", "a", 55.75, 37.61, base)

	near := listing("pet", "b", 55.75, 37.61, base.Add(5*time.Hour))
	far := listing("pet", "b", 55.75, 37.61, base.Add(200*time.Hour))

	assert.Equal(t, 75, Score(lost, near)) // 25 + 20 + 30
	assert.Equal(t, 55, Score(lost, far))  // time component fully decayed
}

func TestScoreGeoBands(t *testing.T) {
	now := time.Now()
	lost := listing("keys", "x", 55.7500, 37.6100, now)

	within1km := listing("keys", "y", 55.7560, 37.6100, now)
	within3km := listing("keys", "y", 55.7700, 37.6100, now)
	beyond := listing("keys", "y", 55.8500, 37.6100, now)

	assert.Equal(t, 65, Score(lost, within1km))
	assert.Equal(t, 55, Score(lost, within3km))
	assert.Equal(t, 45, Score(lost, beyond))
}

func TestScoreMissingCoordinatesAndTime(t *testing.T) {
	lost := models.Listing{Category: "document", Title: "паспорт на имя Иванов"}
	found := models.Listing{Category: "document", Title: "нашёл паспорт Иванов"}

	// 25 category + 10 overlap (паспорт, иванов), nothing else scoreable
	assert.Equal(t, 35, Score(lost, found))
}

func TestHaversine(t *testing.T) {
	// Moscow center to a point ~5 km north
	d := Haversine(55.7500, 37.6100, 55.7950, 37.6100)
	assert.InDelta(t, 5.0, d, 0.1)

	assert.InDelta(t, 0, Haversine(55.75, 37.61, 55.75, 37.61), 1e-9)
}

package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 20, 16, 45, 0, 0, time.UTC)

func TestParseDateTimeInputNow(t *testing.T) {
	got, ok := parseDateTimeInput("сейчас", testNow)
	require.True(t, ok)
	assert.Equal(t, testNow, *got)
}

func TestParseDateTimeInputRelativeDays(t *testing.T) {
	got, ok := parseDateTimeInput("сегодня", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC), *got)

	got, ok = parseDateTimeInput("вчера 9", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 5, 19, 9, 0, 0, 0, time.UTC), *got)

	got, ok = parseDateTimeInput("Сегодня 14:30", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 5, 20, 14, 30, 0, 0, time.UTC), *got)
}

func TestParseDateTimeInputExplicitDates(t *testing.T) {
	got, ok := parseDateTimeInput("12.05 18:00", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 5, 12, 18, 0, 0, 0, time.UTC), *got)

	got, ok = parseDateTimeInput("12/05/24", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 12, 12, 0, 0, 0, time.UTC), *got)

	got, ok = parseDateTimeInput("01-01-2025 7:05", testNow)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 7, 5, 0, 0, time.UTC), *got)
}

func TestParseDateTimeInputRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "скоро", "32.01", "12.13", "вчера 25", "12.05 24:70"} {
		_, ok := parseDateTimeInput(input, testNow)
		assert.False(t, ok, "input %q", input)
	}
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "350 м", formatDistance(0.35))
	assert.Equal(t, "1.2 км", formatDistance(1.2))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "короткий", truncateText("короткий", 42))
	long := "очень длинный заголовок который не влезает в кнопку"
	short := truncateText(long, 10)
	assert.Equal(t, 8, len([]rune(short)))
	assert.Equal(t, "…", string([]rune(short)[7]))
}

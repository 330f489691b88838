package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	timeOfDayRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
	dateInputRe = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})(?:[./-](\d{2,4}))?(?:\s+(\d{1,2})(?::(\d{2}))?)?$`)
)

// parseDateTimeInput understands the free-text answers the location step
// accepts: "сейчас", "сегодня 14:30", "вчера 9", "12.05 18:00",
// "12.05.2025". Times default to noon.
func parseDateTimeInput(input string, now time.Time) (*time.Time, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return nil, false
	}

	if trimmed == "сейчас" {
		t := now
		return &t, true
	}

	for _, day := range []struct {
		word   string
		offset int
	}{
		{"сегодня", 0},
		{"вчера", -1},
	} {
		if trimmed != day.word && !strings.HasPrefix(trimmed, day.word+" ") {
			continue
		}
		base := now.AddDate(0, 0, day.offset)
		hour, minute := 12, 0
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, day.word))
		if rest != "" {
			m := timeOfDayRe.FindStringSubmatch(rest)
			if m == nil {
				return nil, false
			}
			hour, _ = strconv.Atoi(m[1])
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			if hour > 23 || minute > 59 {
				return nil, false
			}
		}
		t := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location())
		return &t, true
	}

	m := dateInputRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	}
	hour, minute := 12, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		if m[5] != "" {
			minute, _ = strconv.Atoi(m[5])
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || hour > 23 || minute > 59 {
		return nil, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, now.Location())
	if t.Day() != day || t.Month() != time.Month(month) {
		return nil, false
	}
	return &t, true
}

func formatDisplayDate(t *time.Time) string {
	if t == nil {
		return "не указано"
	}
	return t.Format("02.01.2006 15:04")
}

func formatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d м", int(km*1000))
	}
	return fmt.Sprintf("%.1f км", km)
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', 5, 64)
}

// truncateText cuts at the rune limit and appends an ellipsis.
func truncateText(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-3]) + "…"
}

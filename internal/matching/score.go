// Package matching scores how likely a LOST and a FOUND listing describe
// the same item. The score is also exported for the offline match scan.
package matching

import (
	"math"
	"strings"

	"lostfound-bot/internal/models"
)

// Score rates a lost/found pair on a 0..100 scale. Category match gives 25,
// time proximity up to 20, geo proximity up to 30, title keyword overlap up
// to 25.
func Score(lost, found models.Listing) int {
	s := 0
	if lost.Category == found.Category {
		s += 25
	}

	if lost.OccurredAt != nil && found.OccurredAt != nil {
		hours := math.Abs(lost.OccurredAt.Sub(*found.OccurredAt).Hours())
		penalty := int(hours / 6)
		if penalty > 20 {
			penalty = 20
		}
		s += 20 - penalty
	}

	if lost.Lat != nil && lost.Lng != nil && found.Lat != nil && found.Lng != nil {
		switch d := Haversine(*lost.Lat, *lost.Lng, *found.Lat, *found.Lng); {
		case d <= 0.3:
			s += 30
		case d <= 1:
			s += 20
		case d <= 3:
			s += 10
		}
	}

	inter := len(intersect(tokens(lost.Title), tokens(found.Title)))
	if overlap := inter * 5; overlap > 25 {
		s += 25
	} else {
		s += overlap
	}

	return s
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	toRad := func(x float64) float64 { return x * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func tokens(title string) []string {
	return strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	if r >= 'a' && r <= 'z' {
		return true
	}
	return r >= 'а' && r <= 'я' || r == 'ё'
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	var out []string
	for _, x := range b {
		if _, ok := set[x]; ok {
			out = append(out, x)
		}
	}
	return out
}

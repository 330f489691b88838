package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneralizeLocationFoundAlwaysCoarsens(t *testing.T) {
	point := GeoPoint{Latitude: 55.75123, Longitude: 37.61987}

	got := generalizeLocation(point, flowFound, locationModeExact)
	assert.Equal(t, 55.75, got.Latitude)
	assert.Equal(t, 37.62, got.Longitude)
	assert.Equal(t, "area", got.Precision)
}

func TestGeneralizeLocationModes(t *testing.T) {
	point := GeoPoint{Latitude: 55.75123, Longitude: 37.61987}

	approx := generalizeLocation(point, flowLost, locationModeApprox)
	assert.Equal(t, "district", approx.Precision)
	assert.Equal(t, 55.76, approx.Latitude)

	transit := generalizeLocation(point, flowLost, locationModeTransit)
	assert.Equal(t, "transit", transit.Precision)
	assert.Equal(t, 55.75, transit.Latitude)
	assert.Equal(t, 37.6, transit.Longitude)

	exact := generalizeLocation(point, flowLost, locationModeExact)
	assert.Equal(t, "point", exact.Precision)
	assert.Equal(t, 55.75, exact.Latitude)
	assert.Equal(t, 37.62, exact.Longitude)
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 55.76, roundCoordinate(55.757, 0.02))
	assert.Equal(t, 55.757, roundCoordinate(55.757, 0))
}

package bot

import "math"

// Generalization grid steps, degrees. Coarser grids leak less about the
// exact point.
const (
	gridFoundExact = 0.01
	gridApprox     = 0.02
	gridTransit    = 0.05
	gridLostSoft   = 0.005
)

// generalizeLocation coarsens a raw point onto a grid before it becomes part
// of a public listing. FOUND points are always coarsened so the storage
// place of an item never leaks; LOST points keep near-full precision unless
// the user chose an imprecise mode.
func generalizeLocation(point GeoPoint, flow, mode string) GeoPoint {
	step := gridLostSoft
	precision := "point"

	switch mode {
	case locationModeApprox:
		step = gridApprox
		precision = "district"
	case locationModeTransit:
		step = gridTransit
		precision = "transit"
	default:
		if flow == flowFound {
			step = gridFoundExact
			precision = "area"
		}
	}

	return GeoPoint{
		Latitude:  roundCoordinate(point.Latitude, step),
		Longitude: roundCoordinate(point.Longitude, step),
		Precision: precision,
	}
}

func roundCoordinate(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	rounded := math.Round(value/step) * step
	// Keep a stable number of decimals so equal inputs serialize equally.
	return math.Round(rounded*1e6) / 1e6
}

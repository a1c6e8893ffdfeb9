package scoring

import (
	"math"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// RouteExposure is a route's static shelter profile: for each of the 16
// compass buckets, the open-water fetch from that direction and a
// log-normalized exposure value (0 = fully sheltered, 1 = fully exposed).
type RouteExposure struct {
	Corridor string
	FetchKm  map[string]float64
	Exposure map[string]float64
}

// maxFetchKm saturates the exposure scale; fetches at or beyond 50 km of
// open water score 1.0. Matches the coastline ray-casting analysis that
// produced the fetch tables.
const maxFetchKm = 50.0

// corridorFetchKm holds median open-water fetch in km by wind-from bucket,
// per corridor. Directional route pairs sample the same crossing line, so
// both directions share one profile. Values come from offline coastline
// analysis (Natural Earth land polygons, rays cast upwind from points
// sampled along each route).
var corridorFetchKm = map[string]map[string]float64{
	// Woods Hole <-> Vineyard Haven: short hop across Vineyard Sound,
	// well sheltered by the Cape to the north, open down-sound to the SW.
	"wh-vh": {
		"N": 2.1, "NNE": 1.8, "NE": 1.5, "ENE": 2.2,
		"E": 4.5, "ESE": 7.5, "SE": 9.5, "SSE": 7.6,
		"S": 6.0, "SSW": 11.0, "SW": 16.0, "WSW": 13.0,
		"W": 7.5, "WNW": 4.4, "NW": 3.2, "NNW": 2.7,
	},
	// Woods Hole <-> Oak Bluffs: slightly more open to the east where
	// the sound widens toward Nantucket Sound.
	"wh-ob": {
		"N": 2.4, "NNE": 2.0, "NE": 3.5, "ENE": 6.0,
		"E": 10.0, "ESE": 12.0, "SE": 10.0, "SSE": 8.0,
		"S": 6.5, "SSW": 9.0, "SW": 12.0, "WSW": 9.0,
		"W": 6.0, "WNW": 3.8, "NW": 2.9, "NNW": 2.5,
	},
	// Hyannis <-> Nantucket: the long Nantucket Sound crossing, exposed
	// to the open Atlantic through the southern quadrants.
	"hy-nan": {
		"N": 3.0, "NNE": 4.0, "NE": 8.0, "ENE": 14.0,
		"E": 22.0, "ESE": 30.0, "SE": 38.0, "SSE": 45.0,
		"S": 50.0, "SSW": 42.0, "SW": 30.0, "WSW": 22.0,
		"W": 16.0, "WNW": 9.0, "NW": 5.5, "NNW": 3.6,
	},
	// Hyannis <-> Vineyard Haven: mid-sound crossing, broad westerly
	// and southerly fetch.
	"hy-vh": {
		"N": 2.6, "NNE": 3.0, "NE": 6.0, "ENE": 10.0,
		"E": 16.0, "ESE": 20.0, "SE": 18.0, "SSE": 16.0,
		"S": 20.0, "SSW": 24.0, "SW": 26.0, "WSW": 20.0,
		"W": 14.0, "WNW": 7.0, "NW": 4.0, "NNW": 3.0,
	},
}

// corridorExposure is derived once from the fetch tables so the two can
// never disagree: exposure = log(fetch+1) / log(maxFetch+1), clamped to [0,1].
var corridorExposure = func() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(corridorFetchKm))
	for corridor, fetches := range corridorFetchKm {
		e := make(map[string]float64, len(fetches))
		for bucket, fetch := range fetches {
			v := math.Log(fetch+1) / math.Log(maxFetchKm+1)
			e[bucket] = math.Min(1, math.Max(0, v))
		}
		out[corridor] = e
	}
	return out
}()

// GetRouteExposure returns the shelter profile for a route, or nil when the
// route (or its corridor) has no computed profile.
func GetRouteExposure(routeID string) *RouteExposure {
	route, ok := domain.RouteByID(routeID)
	if !ok {
		return nil
	}
	fetch, ok := corridorFetchKm[route.Corridor]
	if !ok {
		return nil
	}
	return &RouteExposure{
		Corridor: route.Corridor,
		FetchKm:  fetch,
		Exposure: corridorExposure[route.Corridor],
	}
}

// ExposureValue returns the 0..1 exposure of a route to wind from the given
// direction, and whether a profile exists.
func ExposureValue(routeID string, windDirectionDegrees float64) (float64, bool) {
	exp := GetRouteExposure(routeID)
	if exp == nil {
		return 0, false
	}
	bucket := domain.DegreesToCompassBucket(windDirectionDegrees)
	v, ok := exp.Exposure[bucket]
	return v, ok
}

// Exposure modifier bounds. The linear map -10 + 25*exposure spans exactly
// this range; the clamp is the documented contract.
const (
	exposureModifierMin = -10.0
	exposureModifierMax = 15.0
)

// CalculateExposureModifier maps a route's exposure to the current wind
// direction onto a bounded score contribution: fully sheltered crossings
// earn -10, fully exposed +15, so exposure can color the score but never
// dominate it. Unknown routes return 0 and the caller falls back to the
// coarse crossing-type heuristic.
func CalculateExposureModifier(routeID string, windDirectionDegrees float64) float64 {
	v, ok := ExposureValue(routeID, windDirectionDegrees)
	if !ok {
		return 0
	}
	m := exposureModifierMin + (exposureModifierMax-exposureModifierMin)*v
	return math.Min(exposureModifierMax, math.Max(exposureModifierMin, m))
}

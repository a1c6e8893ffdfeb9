package domain

import "math"

// CrossingType classifies how much open water a route crosses.
type CrossingType string

const (
	CrossingOpenWater CrossingType = "open_water"
	CrossingProtected CrossingType = "protected"
)

// Operator keys match the scraper payload "source" field.
const (
	OperatorSSA    = "steamship_authority"
	OperatorHyLine = "hy_line_cruises"
)

// Route is immutable reference data for a scheduled crossing.
type Route struct {
	ID             string
	Origin         string // port slug
	Destination    string // port slug
	Corridor       string // shared exposure profile key, e.g. "wh-vh"
	BearingDegrees float64
	CrossingType   CrossingType
	OperatorID     string
}

// Port holds the coordinates used to derive route bearings.
type Port struct {
	Slug string
	Name string
	Lat  float64
	Lon  float64
}

// Ports served by the tracked routes.
var Ports = map[string]Port{
	"woods-hole":     {Slug: "woods-hole", Name: "Woods Hole", Lat: 41.5234, Lon: -70.6693},
	"hyannis":        {Slug: "hyannis", Name: "Hyannis", Lat: 41.6362, Lon: -70.2826},
	"vineyard-haven": {Slug: "vineyard-haven", Name: "Vineyard Haven", Lat: 41.4535, Lon: -70.6036},
	"oak-bluffs":     {Slug: "oak-bluffs", Name: "Oak Bluffs", Lat: 41.4571, Lon: -70.5566},
	"nantucket":      {Slug: "nantucket", Name: "Nantucket", Lat: 41.2835, Lon: -70.0995},
}

type routeDef struct {
	id       string
	origin   string
	dest     string
	corridor string
	crossing CrossingType
	operator string
}

var routeDefs = []routeDef{
	{"wh-vh-ssa", "woods-hole", "vineyard-haven", "wh-vh", CrossingProtected, OperatorSSA},
	{"vh-wh-ssa", "vineyard-haven", "woods-hole", "wh-vh", CrossingProtected, OperatorSSA},
	{"wh-ob-ssa", "woods-hole", "oak-bluffs", "wh-ob", CrossingProtected, OperatorSSA},
	{"ob-wh-ssa", "oak-bluffs", "woods-hole", "wh-ob", CrossingProtected, OperatorSSA},
	{"hy-nan-ssa", "hyannis", "nantucket", "hy-nan", CrossingOpenWater, OperatorSSA},
	{"nan-hy-ssa", "nantucket", "hyannis", "hy-nan", CrossingOpenWater, OperatorSSA},
	{"hy-nan-hlc", "hyannis", "nantucket", "hy-nan", CrossingOpenWater, OperatorHyLine},
	{"nan-hy-hlc", "nantucket", "hyannis", "hy-nan", CrossingOpenWater, OperatorHyLine},
	{"hy-vh-hlc", "hyannis", "vineyard-haven", "hy-vh", CrossingOpenWater, OperatorHyLine},
	{"vh-hy-hlc", "vineyard-haven", "hyannis", "hy-vh", CrossingOpenWater, OperatorHyLine},
}

// routes is built once at init; bearings come from port coordinates rather
// than a hand-maintained table so origin/destination pairs can never drift
// out of sync with the port seed data.
var routes = func() map[string]Route {
	m := make(map[string]Route, len(routeDefs))
	for _, d := range routeDefs {
		o, okO := Ports[d.origin]
		t, okT := Ports[d.dest]
		if !okO || !okT {
			panic("route references unknown port: " + d.id)
		}
		m[d.id] = Route{
			ID:             d.id,
			Origin:         d.origin,
			Destination:    d.dest,
			Corridor:       d.corridor,
			BearingDegrees: InitialBearing(o.Lat, o.Lon, t.Lat, t.Lon),
			CrossingType:   d.crossing,
			OperatorID:     d.operator,
		}
	}
	return m
}()

// RouteByID returns the route and whether it exists.
func RouteByID(id string) (Route, bool) {
	r, ok := routes[id]
	return r, ok
}

// AllRoutes returns every configured route. The returned slice is a copy.
func AllRoutes() []Route {
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		out = append(out, r)
	}
	return out
}

// RouteForTerminals resolves the route a sailing belongs to from its
// scraped terminal names and operator.
func RouteForTerminals(departingTerminal, arrivingTerminal, operatorID string) (Route, bool) {
	origin := PortNameToSlug(departingTerminal)
	dest := PortNameToSlug(arrivingTerminal)
	for _, r := range routes {
		if r.Origin == origin && r.Destination == dest && r.OperatorID == operatorID {
			return r, true
		}
	}
	return Route{}, false
}

// BearingBetween returns the travel bearing between two port slugs and
// whether both ports are known. Unknown pairs return ok=false rather than a
// default bearing; a guessed bearing would silently mis-score the sailing.
func BearingBetween(originSlug, destSlug string) (float64, bool) {
	o, okO := Ports[originSlug]
	t, okT := Ports[destSlug]
	if !okO || !okT || originSlug == destSlug {
		return 0, false
	}
	return InitialBearing(o.Lat, o.Lon, t.Lat, t.Lon), true
}

// InitialBearing computes the great-circle initial bearing in degrees
// (0 = north, clockwise) from point 1 to point 2.
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	θ := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(θ+360, 360)
}

// CompassBuckets lists the 16 sector labels in clockwise order from north.
var CompassBuckets = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// DegreesToCompassBucket maps a direction in degrees to the nearest of the
// 16 compass sectors. Handles negative and >360 inputs.
func DegreesToCompassBucket(degrees float64) string {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Round(d/22.5)) % 16
	return CompassBuckets[idx]
}

// RelativeWindAngle folds the absolute angle between a wind-from direction
// and a travel bearing into [0, 180]. 180 means the wind-from direction is
// directly opposite the travel bearing, 0 means they coincide.
func RelativeWindAngle(windFromDegrees, bearingDegrees float64) float64 {
	diff := math.Abs(math.Mod(windFromDegrees-bearingDegrees, 360))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

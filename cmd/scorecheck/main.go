// Command scorecheck performs integrity checks across the risk model's
// static data and scoring behavior: route reference data, corridor exposure
// tables, route score properties, and the per-sailing overlay. It is run
// after any weight-table or exposure-table change to catch regressions
// before they ship.
//
// Usage:
//
//	go run ./cmd/scorecheck [-verbose]
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/scoring"
)

// compassBuckets are the 16 wind-from buckets the exposure tables are keyed
// by, in clockwise order from north.
var compassBuckets = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	verbose := flag.Bool("verbose", false, "print factor breakdowns for the sampled scenarios")
	flag.Parse()

	if code := run(*verbose); code != 0 {
		os.Exit(code)
	}
}

func run(verbose bool) int {
	// Fix the clock so repeated runs produce identical output.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Risk Model Integrity Checks ===")
	fmt.Println()

	phases := []*phase{
		checkRouteData(),
		checkExposureTables(),
		checkRouteScoreProperties(verbose),
		checkSailingOverlay(),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nCheck FAILED.")
	return 1
}

// ── Phase 1: Route reference data ──
// Every route must resolve, carry a sane bearing, and pair with a reciprocal
// route on the same corridor whose bearing points back the other way.

func checkRouteData() *phase {
	p := &phase{name: "Phase 1: Route reference data"}

	routes := domain.AllRoutes()
	if len(routes) == 0 {
		p.errorf("no routes defined")
		return p
	}

	byPair := map[string]domain.Route{}
	for _, r := range routes {
		if _, ok := domain.RouteByID(r.ID); !ok {
			p.errorf("route %s: not resolvable by ID", r.ID)
		}
		if r.BearingDegrees < 0 || r.BearingDegrees >= 360 {
			p.errorf("route %s: bearing %.1f out of [0, 360)", r.ID, r.BearingDegrees)
		}
		if _, ok := domain.Ports[r.Origin]; !ok {
			p.errorf("route %s: unknown origin port %q", r.ID, r.Origin)
		}
		if _, ok := domain.Ports[r.Destination]; !ok {
			p.errorf("route %s: unknown destination port %q", r.ID, r.Destination)
		}
		byPair[r.Origin+"|"+r.Destination+"|"+r.OperatorID] = r
	}

	for _, r := range routes {
		back, ok := byPair[r.Destination+"|"+r.Origin+"|"+r.OperatorID]
		if !ok {
			p.errorf("route %s: no reciprocal route for %s -> %s", r.ID, r.Destination, r.Origin)
			continue
		}
		if back.Corridor != r.Corridor {
			p.errorf("route %s: reciprocal %s on corridor %q, want %q", r.ID, back.ID, back.Corridor, r.Corridor)
		}
		diff := math.Abs(math.Mod(r.BearingDegrees-back.BearingDegrees+360, 360))
		if math.Abs(diff-180) > 5 {
			p.errorf("route %s: bearing %.1f vs reciprocal %.1f differ by %.1f, want ~180",
				r.ID, r.BearingDegrees, back.BearingDegrees, diff)
		}
	}
	return p
}

// ── Phase 2: Exposure tables ──
// Each corridor needs a complete 16-bucket profile with exposures in [0, 1],
// and the long open-water crossings must dominate the sheltered ones.

func checkExposureTables() *phase {
	p := &phase{name: "Phase 2: Corridor exposure tables"}

	for _, r := range domain.AllRoutes() {
		exp := scoring.GetRouteExposure(r.ID)
		if exp == nil {
			p.errorf("route %s: no exposure profile for corridor %q", r.ID, r.Corridor)
			continue
		}
		for _, bucket := range compassBuckets {
			fetch, ok := exp.FetchKm[bucket]
			if !ok {
				p.errorf("corridor %s: missing fetch bucket %s", exp.Corridor, bucket)
				continue
			}
			if fetch <= 0 {
				p.errorf("corridor %s bucket %s: non-positive fetch %.1f km", exp.Corridor, bucket, fetch)
			}
			v, ok := exp.Exposure[bucket]
			if !ok {
				p.errorf("corridor %s: missing exposure bucket %s", exp.Corridor, bucket)
				continue
			}
			if v < 0 || v > 1 {
				p.errorf("corridor %s bucket %s: exposure %.3f out of [0, 1]", exp.Corridor, bucket, v)
			}
		}
	}

	// The Nantucket Sound crossing faces the open Atlantic through its
	// southern quadrants; the Vineyard Sound hop does not.
	for _, bucket := range []string{"SE", "SSE", "S", "SSW"} {
		hyNan := exposureFor(p, "hy-nan-hlc", bucket)
		whVh := exposureFor(p, "wh-vh-ssa", bucket)
		if hyNan <= whVh {
			p.errorf("bucket %s: hy-nan exposure %.3f not greater than wh-vh %.3f", bucket, hyNan, whVh)
		}
	}

	// Modifier stays within its documented bounds at every degree.
	for _, r := range domain.AllRoutes() {
		for deg := 0.0; deg < 360; deg += 11.25 {
			m := scoring.CalculateExposureModifier(r.ID, deg)
			if m < -10 || m > 15 {
				p.errorf("route %s wind %.2f: modifier %.2f out of [-10, 15]", r.ID, deg, m)
			}
		}
	}
	return p
}

func exposureFor(p *phase, routeID, bucket string) float64 {
	exp := scoring.GetRouteExposure(routeID)
	if exp == nil {
		p.errorf("route %s: no exposure profile", routeID)
		return 0
	}
	return exp.Exposure[bucket]
}

// ── Phase 3: Route score properties ──
// Sweeps the scorer across every route, wind direction, speed, and advisory
// level: scores must stay in [0, 100], identical inputs must score
// identically, and calm conditions must stay quiet.

var sweepSpeeds = []float64{0, 10, 18, 25, 35, 50}

var sweepAdvisories = []domain.AdvisoryLevel{
	domain.AdvisoryNone,
	domain.AdvisorySmallCraft,
	domain.AdvisoryGale,
	domain.AdvisoryStorm,
	domain.AdvisoryHurricane,
}

func checkRouteScoreProperties(verbose bool) *phase {
	p := &phase{name: "Phase 3: Route score properties"}
	scorer := scoring.NewScorer(scoring.DefaultWeights())

	var evaluated, maxScore int
	var maxInput scoring.Input
	for _, r := range domain.AllRoutes() {
		for deg := 0.0; deg < 360; deg += 22.5 {
			for _, speed := range sweepSpeeds {
				for _, adv := range sweepAdvisories {
					in := scoring.Input{
						Route: r,
						Weather: domain.WeatherSnapshot{
							WindSpeed:     speed,
							WindGusts:     speed * 1.3,
							WindDirection: deg,
							AdvisoryLevel: adv,
						},
						DataPointCount: 12,
					}
					res := scorer.Score(in)
					evaluated++

					if res.Score < 0 || res.Score > 100 {
						p.errorf("%s wind %.1f@%.0f %s: score %d out of [0, 100]",
							r.ID, speed, deg, adv, res.Score)
					}
					if again := scorer.Score(in); again.Score != res.Score || len(again.Factors) != len(res.Factors) {
						p.errorf("%s wind %.1f@%.0f %s: non-deterministic score", r.ID, speed, deg, adv)
					}
					if res.ModelVersion != scoring.ModelVersion {
						p.errorf("%s: model version %q, want %q", r.ID, res.ModelVersion, scoring.ModelVersion)
					}
					if speed == 0 && adv == domain.AdvisoryNone && res.Score > 10 {
						p.errorf("%s calm %.0f deg: score %d, want near zero", r.ID, deg, res.Score)
					}
					if res.Score > maxScore {
						maxScore = res.Score
						maxInput = in
					}
				}
			}
		}
	}

	// A storm-warning southerly on the Nantucket Sound crossing must score
	// at least as high as the same conditions on the sheltered hop.
	storm := domain.WeatherSnapshot{
		WindSpeed: 38, WindGusts: 52, WindDirection: 180,
		AdvisoryLevel: domain.AdvisoryStorm,
	}
	hyNan := scorer.Score(scoring.Input{Route: mustRoute(p, "hy-nan-hlc"), Weather: storm, DataPointCount: 12})
	whVh := scorer.Score(scoring.Input{Route: mustRoute(p, "wh-vh-ssa"), Weather: storm, DataPointCount: 12})
	if hyNan.Score < whVh.Score {
		p.errorf("southerly storm: hy-nan scored %d below wh-vh %d", hyNan.Score, whVh.Score)
	}

	fmt.Printf("  evaluated %d route scenarios, peak score %d\n", evaluated, maxScore)
	if verbose {
		res := scorer.Score(maxInput)
		fmt.Printf("  peak scenario: %s wind %.0f mph @ %.0f deg, advisory %s\n",
			maxInput.Route.ID, maxInput.Weather.WindSpeed, maxInput.Weather.WindDirection,
			maxInput.Weather.AdvisoryLevel)
		for _, f := range res.Factors {
			fmt.Printf("    %-18s %+6.1f  %s\n", f.Kind, f.Weight, f.Description)
		}
	}
	return p
}

func mustRoute(p *phase, id string) domain.Route {
	r, ok := domain.RouteByID(id)
	if !ok {
		p.errorf("route %s: not found", id)
	}
	return r
}

// ── Phase 4: Sailing overlay ──
// The per-sailing badge must bucket consistently with its score, surface a
// reason only at meaningful scores, and never guess a bearing for terminal
// pairs it cannot resolve.

func checkSailingOverlay() *phase {
	p := &phase{name: "Phase 4: Sailing overlay"}
	scorer := scoring.NewSailingScorer(scoring.DefaultSailingWeights())

	sailing := domain.Sailing{
		DepartingTerminal: "Woods Hole",
		ArrivingTerminal:  "Vineyard Haven",
		DepartureTime:     "8:35 AM",
		OperatorID:        domain.OperatorSSA,
	}

	for deg := 0.0; deg < 360; deg += 22.5 {
		for _, speed := range sweepSpeeds {
			weather := domain.WeatherSnapshot{
				WindSpeed: speed, WindGusts: speed * 1.3, WindDirection: deg,
				AdvisoryLevel: domain.AdvisoryNone,
			}
			risk := scorer.Score(sailing, weather, "wh-vh-ssa")

			if risk.Score < 0 || risk.Score > 100 {
				p.errorf("wind %.1f@%.0f: score %d out of [0, 100]", speed, deg, risk.Score)
			}
			if got := levelForScore(risk.Score); risk.Level != got {
				p.errorf("wind %.1f@%.0f: score %d labeled %s, want %s", speed, deg, risk.Score, risk.Level, got)
			}
			if risk.Score > 25 && risk.Reason == "" {
				p.errorf("wind %.1f@%.0f: score %d has no reason text", speed, deg, risk.Score)
			}
			if risk.Score <= 25 && risk.Reason != "" {
				p.errorf("wind %.1f@%.0f: score %d has reason %q", speed, deg, risk.Score, risk.Reason)
			}
		}
	}

	// Unknown terminal pairs skip the direction stage entirely.
	odd := sailing
	odd.DepartingTerminal = "Cuttyhunk"
	risk := scorer.Score(odd, domain.WeatherSnapshot{WindSpeed: 38, WindGusts: 50, WindDirection: 145}, "")
	if risk.DirectionAffected {
		p.errorf("unresolvable terminal pair: direction stage ran anyway")
	}
	if risk.WindRelation != "" {
		p.errorf("unresolvable terminal pair: got wind relation %q", risk.WindRelation)
	}
	return p
}

func levelForScore(score int) scoring.RiskLevel {
	switch {
	case score <= 30:
		return scoring.LevelLow
	case score <= 55:
		return scoring.LevelModerate
	default:
		return scoring.LevelElevated
	}
}

package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// Confidence rates how much data backed a score, independent of the score
// itself.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// WindRelation classifies how the wind meets the direction of travel.
type WindRelation string

const (
	RelationHeadwind   WindRelation = "headwind"
	RelationTailwind   WindRelation = "tailwind"
	RelationCrosswind  WindRelation = "crosswind"
	RelationQuartering WindRelation = "quartering"
)

// Factor is one contribution to a score, kept for user-facing transparency.
type Factor struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Factor kinds, in rough order of typical weight.
const (
	FactorAdvisory        = "advisory"
	FactorWindSevere      = "wind_severe"
	FactorWindUnfavorable = "wind_unfavorable"
	FactorGusts           = "gusts"
	FactorTide            = "tide_swing"
	FactorExposureExposed = "route_exposed"
	FactorExposureShelter = "route_sheltered"
	FactorOpenWater       = "open_water"
	FactorHistoricalMatch = "historical_pattern"
)

// Input carries everything one scoring call may consider. Route and Weather
// are required; the rest degrade confidence when absent instead of failing.
type Input struct {
	Route             domain.Route
	Weather           domain.WeatherSnapshot
	Tide              *domain.TideSwing
	HistoricalMatches []domain.DisruptionHistory
	DataPointCount    int
}

// Result is a computed view, produced fresh on every call and never
// persisted as a source of truth.
type Result struct {
	Score        int        `json:"score"`
	Confidence   Confidence `json:"confidence"`
	Factors      []Factor   `json:"factors"`
	ModelVersion string     `json:"model_version"`
	CalculatedAt time.Time  `json:"calculated_at"`
}

// Scorer computes route-level disruption risk from a weight table.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. Zero-value weight tables are replaced with
// the defaults.
func NewScorer(w Weights) *Scorer {
	if w.Operators == nil {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Score computes the aggregate 0-100 disruption risk for a route under the
// given conditions. Pure: identical inputs yield an identical score and
// factor ordering.
func (s *Scorer) Score(in Input) Result {
	w := s.weights
	op, ok := w.Operators[in.Route.OperatorID]
	if !ok {
		op = w.DefaultOperator
	}

	var total float64
	var factors []Factor
	add := func(kind, desc string, weight float64) {
		total += weight
		factors = append(factors, Factor{Kind: kind, Description: desc, Weight: weight})
	}

	// Advisory: the single applicable level, never a sum.
	if weight, ok := w.Advisory[in.Weather.AdvisoryLevel]; ok {
		scaled := weight * op.Vessel.AdvisorySensitivity
		add(FactorAdvisory, advisoryDescription(in.Weather.AdvisoryLevel), scaled)
	}

	relation, dirMult := s.classifyWind(in.Weather.WindDirection, in.Route.BearingDegrees)

	// Sustained wind, scaled by direction and vessel sensitivity.
	switch {
	case in.Weather.WindSpeed >= w.Wind.Severe:
		weight := w.SevereWindWeight * dirMult * op.Vessel.DirectionalSensitivity
		add(FactorWindSevere,
			fmt.Sprintf("Sustained wind %.0f mph (%s)", in.Weather.WindSpeed, relation), weight)
	case in.Weather.WindSpeed >= w.Wind.Significant && dirMult > 1.0:
		weight := w.UnfavorableWindWeight * dirMult * op.Vessel.DirectionalSensitivity
		add(FactorWindUnfavorable,
			fmt.Sprintf("Unfavorable %.0f mph %s", in.Weather.WindSpeed, relation), weight)
	}

	// Gusts well above sustained speed.
	if in.Weather.WindGusts >= w.GustThreshold {
		weight := math.Min(w.GustCap, (in.Weather.WindGusts-w.GustBase)*w.GustScale)
		weight *= op.Vessel.DirectionalSensitivity
		add(FactorGusts, fmt.Sprintf("Gusts to %.0f mph", in.Weather.WindGusts), weight)
	}

	// Large tide swings complicate docking at the island terminals.
	if in.Tide != nil && in.Tide.SwingFeet >= w.TideSwingThreshold {
		weight := math.Min(w.TideCap, (in.Tide.SwingFeet-w.TideBase)*w.TideScale)
		add(FactorTide, fmt.Sprintf("%.1f ft tide swing", in.Tide.SwingFeet), weight)
	}

	// Geometric exposure, or the coarse crossing-type fallback.
	if in.Weather.WindSpeed >= w.ExposureWindMin {
		if exp := GetRouteExposure(in.Route.ID); exp != nil {
			mod := CalculateExposureModifier(in.Route.ID, in.Weather.WindDirection)
			bucket := domain.DegreesToCompassBucket(in.Weather.WindDirection)
			if mod >= 0 {
				add(FactorExposureExposed,
					fmt.Sprintf("Route exposed to %s wind", bucket), mod)
			} else {
				add(FactorExposureShelter,
					fmt.Sprintf("Route sheltered from %s wind", bucket), mod)
			}
		} else if in.Route.CrossingType == domain.CrossingOpenWater {
			weight := math.Min(w.OpenWaterCap, in.Weather.WindSpeed/w.OpenWaterDivisor)
			add(FactorOpenWater, "Open water crossing in wind", weight)
		}
	}

	// Historical pattern match under similar conditions.
	if rate, matches := s.historicalRate(in); matches > 0 && rate > 0 {
		weight := math.Min(w.HistoryCap, math.Round(rate*w.HistoryScale))
		add(FactorHistoricalMatch,
			fmt.Sprintf("%.0f%% disruption rate in similar conditions (%d matches)", rate*100, matches),
			weight)
	}

	total *= op.ConservativeFactor

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Weight > factors[j].Weight
	})

	return Result{
		Score:        clampScore(total),
		Confidence:   s.confidence(in.DataPointCount, len(in.HistoricalMatches)),
		Factors:      factors,
		ModelVersion: ModelVersion,
		CalculatedAt: domain.Clock().Now().UTC(),
	}
}

// classifyWind returns the wind/route relation and its multiplier using the
// route-level sector boundaries.
func (s *Scorer) classifyWind(windFrom, bearing float64) (WindRelation, float64) {
	w := s.weights
	rel := domain.RelativeWindAngle(windFrom, bearing)
	switch {
	case rel >= 135-w.HeadwindRange:
		return RelationHeadwind, w.Direction.Headwind
	case math.Abs(rel-90) <= w.CrosswindRange:
		return RelationCrosswind, w.Direction.Crosswind
	case rel <= w.TailwindMax:
		return RelationTailwind, w.Direction.Tailwind
	default:
		return RelationQuartering, w.Direction.Quartering
	}
}

// historicalRate finds history buckets recorded under wind/gust values near
// current conditions and returns the pooled disruption rate.
func (s *Scorer) historicalRate(in Input) (float64, int) {
	w := s.weights
	var scheduled, disrupted, matches int
	for _, h := range in.HistoricalMatches {
		if math.Abs(h.WindSpeed-in.Weather.WindSpeed) > w.HistoryWindTolerance {
			continue
		}
		if math.Abs(h.WindGusts-in.Weather.WindGusts) > w.HistoryGustTolerance {
			continue
		}
		matches++
		scheduled += h.ScheduledCount
		disrupted += h.DelayedCount + h.CanceledCount
	}
	if matches == 0 || scheduled == 0 {
		return 0, 0
	}
	return float64(disrupted) / float64(scheduled), matches
}

// confidence is derived from data volume, not from the score.
func (s *Scorer) confidence(dataPoints, matches int) Confidence {
	w := s.weights
	switch {
	case dataPoints >= w.ConfidenceHighPoints && matches >= w.ConfidenceHighMatches:
		return ConfidenceHigh
	case dataPoints >= w.ConfidenceMediumPoints && matches >= w.ConfidenceMediumMatches:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func advisoryDescription(level domain.AdvisoryLevel) string {
	switch level {
	case domain.AdvisorySmallCraft:
		return "Small craft advisory in effect"
	case domain.AdvisoryGale:
		return "Gale warning in effect"
	case domain.AdvisoryStorm:
		return "Storm warning in effect"
	case domain.AdvisoryHurricane:
		return "Hurricane warning in effect"
	default:
		return "Marine advisory in effect"
	}
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

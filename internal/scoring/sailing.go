package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// RiskLevel buckets a sailing score for the board badge.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelModerate RiskLevel = "moderate"
	LevelElevated RiskLevel = "elevated"
)

// SailingRisk is the per-sailing directional overlay. It annotates a board
// entry; it never overwrites the operator-declared status.
type SailingRisk struct {
	Score             int          `json:"score"`
	Level             RiskLevel    `json:"level"`
	Reason            string       `json:"reason,omitempty"`
	DirectionAffected bool         `json:"direction_affected"`
	WindRelation      WindRelation `json:"wind_relation,omitempty"`
}

// SailingScorer computes per-sailing risk from the overlay weight table.
type SailingScorer struct {
	weights SailingWeights
}

// NewSailingScorer creates a SailingScorer. A zero-value table is replaced
// with the defaults.
func NewSailingScorer(w SailingWeights) *SailingScorer {
	if w.AdvisoryBoost == nil {
		w = DefaultSailingWeights()
	}
	return &SailingScorer{weights: w}
}

// phrase is an internal scoring contribution used to build the reason text.
type phrase struct {
	text   string
	weight float64
}

// Score computes direction-aware risk for one sailing under the current
// weather. When the origin/destination pair has no known bearing the
// direction stage is skipped entirely (no default bearing is guessed) and
// DirectionAffected stays false.
func (s *SailingScorer) Score(sailing domain.Sailing, weather domain.WeatherSnapshot, routeID string) SailingRisk {
	w := s.weights

	origin := domain.PortNameToSlug(sailing.DepartingTerminal)
	dest := domain.PortNameToSlug(sailing.ArrivingTerminal)
	bearing, bearingKnown := domain.BearingBetween(origin, dest)

	var relation WindRelation
	dirMult := 1.0
	if bearingKnown {
		relation, dirMult = s.classify(weather.WindDirection, bearing)
	}

	var phrases []phrase
	var windScore float64

	switch {
	case weather.WindSpeed >= w.Wind.Severe:
		windScore = w.SevereWeight
		phrases = append(phrases, phrase{fmt.Sprintf("%.0f mph wind", weather.WindSpeed), w.SevereWeight})
	case weather.WindSpeed >= w.Wind.Significant:
		windScore = w.SignificantWeight
		phrases = append(phrases, phrase{fmt.Sprintf("%.0f mph wind", weather.WindSpeed), w.SignificantWeight})
	case weather.WindSpeed >= w.Wind.Moderate:
		windScore = w.ModerateWeight
		phrases = append(phrases, phrase{fmt.Sprintf("%.0f mph wind", weather.WindSpeed), w.ModerateWeight})
	}

	switch {
	case weather.WindGusts >= w.GustSevere:
		windScore += w.GustSevereWeight
		phrases = append(phrases, phrase{fmt.Sprintf("gusts to %.0f mph", weather.WindGusts), w.GustSevereWeight})
	case weather.WindGusts >= w.GustSignificant:
		windScore += w.GustSignificantWeight
		phrases = append(phrases, phrase{fmt.Sprintf("gusts to %.0f mph", weather.WindGusts), w.GustSignificantWeight})
	}

	// The direction multiplier only applies once wind is a factor at all.
	directionAffected := false
	if bearingKnown && weather.WindSpeed >= w.Wind.Moderate && dirMult != 1.0 {
		windScore *= dirMult
		directionAffected = dirMult > 1.0
		if directionAffected {
			phrases = append(phrases, phrase{string(relation), windScore * (dirMult - 1) / dirMult})
		}
	}
	score := windScore

	if v, ok := ExposureValue(routeID, weather.WindDirection); ok {
		mod := w.ExposureBase + w.ExposureScale*v
		score += mod
		if mod > 0 {
			phrases = append(phrases, phrase{"exposed crossing", mod})
		}
	}

	if boost, ok := w.AdvisoryBoost[weather.AdvisoryLevel]; ok {
		score += boost
		phrases = append(phrases, phrase{advisoryShort(weather.AdvisoryLevel), boost})
	}

	final := clampScore(score)

	risk := SailingRisk{
		Score:             final,
		Level:             s.level(final),
		DirectionAffected: directionAffected,
	}
	if bearingKnown {
		risk.WindRelation = relation
	}
	if final > w.ReasonMinScore {
		risk.Reason = buildReason(phrases)
	}
	return risk
}

// classify uses the overlay's sector boundaries, which are wider than the
// route-level scorer's on purpose.
func (s *SailingScorer) classify(windFrom, bearing float64) (WindRelation, float64) {
	w := s.weights
	rel := domain.RelativeWindAngle(windFrom, bearing)
	switch {
	case rel >= w.HeadwindMin:
		return RelationHeadwind, w.Direction.Headwind
	case rel < w.TailwindMax:
		return RelationTailwind, w.Direction.Tailwind
	case rel >= w.CrosswindMin:
		return RelationCrosswind, w.Direction.Crosswind
	default:
		return RelationQuartering, w.Direction.Quartering
	}
}

func (s *SailingScorer) level(score int) RiskLevel {
	switch {
	case score <= s.weights.LevelLowMax:
		return LevelLow
	case score <= s.weights.LevelModerateMax:
		return LevelModerate
	default:
		return LevelElevated
	}
}

// buildReason joins up to the two highest-weight phrases.
func buildReason(phrases []phrase) string {
	if len(phrases) == 0 {
		return ""
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return phrases[i].weight > phrases[j].weight
	})
	n := len(phrases)
	if n > 2 {
		n = 2
	}
	parts := make([]string, 0, n)
	for _, p := range phrases[:n] {
		parts = append(parts, p.text)
	}
	return strings.Join(parts, ", ")
}

func advisoryShort(level domain.AdvisoryLevel) string {
	switch level {
	case domain.AdvisorySmallCraft:
		return "small craft advisory"
	case domain.AdvisoryGale:
		return "gale warning"
	case domain.AdvisoryStorm:
		return "storm warning"
	case domain.AdvisoryHurricane:
		return "hurricane warning"
	default:
		return "marine advisory"
	}
}

// Package scoring computes deterministic ferry disruption risk: an
// aggregate 0-100 route score with contributing factors, and a per-sailing
// directional overlay for board badges. All scoring is pure, identical
// inputs always produce identical output, so results can be shown to users
// with a full factor breakdown and reproduced in tests.
package scoring

import "github.com/capecast/ferry-risk-service/internal/domain"

// ModelVersion identifies the weight table revision that produced a result.
const ModelVersion = "2.3.0"

// DirectionMultipliers scale wind weight by how the wind meets the route.
type DirectionMultipliers struct {
	Headwind   float64
	Crosswind  float64
	Tailwind   float64
	Quartering float64
}

// WindThresholds are sustained-wind cut points in mph.
type WindThresholds struct {
	Moderate    float64
	Significant float64
	Severe      float64
	Critical    float64
}

// VesselProfile captures how sensitive an operator's fleet is to advisories
// and unfavorable wind angles. Hy-Line's fast catamarans are more sensitive
// than the Steamship Authority's displacement hulls.
type VesselProfile struct {
	AdvisorySensitivity    float64
	DirectionalSensitivity float64
}

// OperatorProfile bundles per-operator tuning.
type OperatorProfile struct {
	// ConservativeFactor amplifies the final score for operators that
	// historically cancel earlier and more often in marginal conditions.
	ConservativeFactor float64
	Vessel             VesselProfile
}

// Weights is the tunable configuration for the route-level scorer. Pure
// data, no logic.
type Weights struct {
	Advisory map[domain.AdvisoryLevel]float64

	Wind      WindThresholds
	Direction DirectionMultipliers
	// HeadwindRange widens the headwind sector: headwind when the
	// relative angle is >= 135 - HeadwindRange degrees.
	HeadwindRange  float64
	CrosswindRange float64 // crosswind when within this many degrees of 90
	TailwindMax    float64 // tailwind when relative angle <= this

	SevereWindWeight      float64
	UnfavorableWindWeight float64

	GustThreshold float64
	GustBase      float64
	GustScale     float64
	GustCap       float64

	TideSwingThreshold float64
	TideBase           float64
	TideScale          float64
	TideCap            float64

	ExposureWindMin  float64
	OpenWaterDivisor float64
	OpenWaterCap     float64

	HistoryWindTolerance float64
	HistoryGustTolerance float64
	HistoryScale         float64
	HistoryCap           float64

	Operators       map[string]OperatorProfile
	DefaultOperator OperatorProfile

	ConfidenceMediumPoints  int
	ConfidenceMediumMatches int
	ConfidenceHighPoints    int
	ConfidenceHighMatches   int
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		Advisory: map[domain.AdvisoryLevel]float64{
			domain.AdvisorySmallCraft: 30,
			domain.AdvisoryGale:       40,
			domain.AdvisoryStorm:      60,
			domain.AdvisoryHurricane:  80,
		},

		Wind:           WindThresholds{Moderate: 15, Significant: 20, Severe: 30, Critical: 40},
		Direction:      DirectionMultipliers{Headwind: 1.5, Crosswind: 1.25, Tailwind: 0.75, Quartering: 1.0},
		HeadwindRange:  0,
		CrosswindRange: 25,
		TailwindMax:    30,

		SevereWindWeight:      25,
		UnfavorableWindWeight: 12,

		GustThreshold: 45,
		GustBase:      35,
		GustScale:     0.5,
		GustCap:       15,

		TideSwingThreshold: 10,
		TideBase:           4,
		TideScale:          2,
		TideCap:            15,

		ExposureWindMin:  15,
		OpenWaterDivisor: 5,
		OpenWaterCap:     10,

		HistoryWindTolerance: 10,
		HistoryGustTolerance: 15,
		HistoryScale:         40,
		HistoryCap:           25,

		Operators: map[string]OperatorProfile{
			domain.OperatorSSA: {
				ConservativeFactor: 1.0,
				Vessel:             VesselProfile{AdvisorySensitivity: 1.0, DirectionalSensitivity: 1.0},
			},
			domain.OperatorHyLine: {
				ConservativeFactor: 1.1,
				Vessel:             VesselProfile{AdvisorySensitivity: 1.2, DirectionalSensitivity: 1.15},
			},
		},
		DefaultOperator: OperatorProfile{
			ConservativeFactor: 1.0,
			Vessel:             VesselProfile{AdvisorySensitivity: 1.0, DirectionalSensitivity: 1.0},
		},

		ConfidenceMediumPoints:  10,
		ConfidenceMediumMatches: 5,
		ConfidenceHighPoints:    50,
		ConfidenceHighMatches:   20,
	}
}

// SailingWeights is the tunable configuration for the per-sailing overlay.
// Its cut points deliberately differ from the route-level table: the sailing
// badge is meant to be more sensitive than the aggregate route forecast.
type SailingWeights struct {
	Direction    DirectionMultipliers
	HeadwindMin  float64
	CrosswindMin float64
	TailwindMax  float64

	Wind              WindThresholds
	SevereWeight      float64
	SignificantWeight float64
	ModerateWeight    float64

	GustSevere            float64
	GustSevereWeight      float64
	GustSignificant       float64
	GustSignificantWeight float64

	ExposureBase  float64
	ExposureScale float64

	AdvisoryBoost map[domain.AdvisoryLevel]float64

	LevelLowMax      int
	LevelModerateMax int
	ReasonMinScore   int
}

// DefaultSailingWeights returns the production overlay table.
func DefaultSailingWeights() SailingWeights {
	return SailingWeights{
		Direction:    DirectionMultipliers{Headwind: 1.4, Crosswind: 1.2, Tailwind: 0.8, Quartering: 1.0},
		HeadwindMin:  135,
		CrosswindMin: 45,
		TailwindMax:  20,

		Wind:              WindThresholds{Moderate: 15, Significant: 20, Severe: 30, Critical: 40},
		SevereWeight:      35,
		SignificantWeight: 20,
		ModerateWeight:    10,

		GustSevere:            45,
		GustSevereWeight:      15,
		GustSignificant:       35,
		GustSignificantWeight: 8,

		ExposureBase:  -5,
		ExposureScale: 15,

		AdvisoryBoost: map[domain.AdvisoryLevel]float64{
			domain.AdvisorySmallCraft: 15,
			domain.AdvisoryGale:       25,
			domain.AdvisoryStorm:      40,
			domain.AdvisoryHurricane:  40,
		},

		LevelLowMax:      30,
		LevelModerateMax: 55,
		ReasonMinScore:   25,
	}
}

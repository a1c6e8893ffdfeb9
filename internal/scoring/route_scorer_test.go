package scoring

import (
	"testing"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRoute is an unmapped route so no exposure profile interferes unless a
// test wants one.
func testRoute(bearing float64, crossing domain.CrossingType) domain.Route {
	return domain.Route{
		ID:             "test-route",
		BearingDegrees: bearing,
		CrossingType:   crossing,
		OperatorID:     domain.OperatorSSA,
	}
}

func TestScoreHeadwindSevere(t *testing.T) {
	// Southbound route, 35 mph wind from due north: relative angle 180,
	// classified headwind. Only the severe-wind stage fires.
	s := NewScorer(DefaultWeights())
	result := s.Score(Input{
		Route:   testRoute(180, domain.CrossingProtected),
		Weather: domain.WeatherSnapshot{WindSpeed: 35, WindDirection: 0, AdvisoryLevel: domain.AdvisoryNone},
	})

	require.Len(t, result.Factors, 1)
	assert.Equal(t, FactorWindSevere, result.Factors[0].Kind)
	assert.InDelta(t, 37.5, result.Factors[0].Weight, 0.001) // 25 * 1.5 headwind
	assert.Equal(t, 38, result.Score)
	assert.Equal(t, ConfidenceLow, result.Confidence)
	assert.Equal(t, ModelVersion, result.ModelVersion)
}

func TestScoreDeterministic(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	s := NewScorer(DefaultWeights())
	in := Input{
		Route: testRoute(145, domain.CrossingOpenWater),
		Weather: domain.WeatherSnapshot{
			WindSpeed: 28, WindGusts: 47, WindDirection: 310,
			AdvisoryLevel: domain.AdvisorySmallCraft,
		},
		Tide:           &domain.TideSwing{SwingFeet: 11.5, HoursToNext: 2, CurrentPhase: domain.TideRising},
		DataPointCount: 12,
	}

	first := s.Score(in)
	second := s.Score(in)
	assert.Equal(t, first, second)
}

func TestScoreClamping(t *testing.T) {
	s := NewScorer(DefaultWeights())

	t.Run("extreme synthetic input stays at 100", func(t *testing.T) {
		result := s.Score(Input{
			Route: testRoute(180, domain.CrossingOpenWater),
			Weather: domain.WeatherSnapshot{
				WindSpeed: 200, WindGusts: 250, WindDirection: 0,
				AdvisoryLevel: domain.AdvisoryHurricane,
			},
			Tide: &domain.TideSwing{SwingFeet: 20},
		})
		assert.Equal(t, 100, result.Score)
	})

	t.Run("calm conditions score zero", func(t *testing.T) {
		result := s.Score(Input{
			Route:   testRoute(180, domain.CrossingProtected),
			Weather: domain.WeatherSnapshot{WindSpeed: 5, AdvisoryLevel: domain.AdvisoryNone},
		})
		assert.Equal(t, 0, result.Score)
		assert.Empty(t, result.Factors)
	})
}

func TestScoreAdvisoryStage(t *testing.T) {
	s := NewScorer(DefaultWeights())

	tests := []struct {
		level  domain.AdvisoryLevel
		weight float64
	}{
		{domain.AdvisorySmallCraft, 30},
		{domain.AdvisoryGale, 40},
		{domain.AdvisoryStorm, 60},
		{domain.AdvisoryHurricane, 80},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			result := s.Score(Input{
				Route:   testRoute(180, domain.CrossingProtected),
				Weather: domain.WeatherSnapshot{WindSpeed: 5, AdvisoryLevel: tt.level},
			})
			require.Len(t, result.Factors, 1)
			assert.Equal(t, FactorAdvisory, result.Factors[0].Kind)
			assert.InDelta(t, tt.weight, result.Factors[0].Weight, 0.001)
		})
	}
}

func TestScoreUnfavorableWindStage(t *testing.T) {
	s := NewScorer(DefaultWeights())

	// 22 mph crosswind: below severe, above significant, multiplier > 1.
	result := s.Score(Input{
		Route:   testRoute(180, domain.CrossingProtected),
		Weather: domain.WeatherSnapshot{WindSpeed: 22, WindDirection: 90, AdvisoryLevel: domain.AdvisoryNone},
	})
	require.Len(t, result.Factors, 1)
	assert.Equal(t, FactorWindUnfavorable, result.Factors[0].Kind)
	assert.InDelta(t, 15, result.Factors[0].Weight, 0.001) // 12 * 1.25 crosswind

	// Same speed with a tailwind does not fire the stage.
	result = s.Score(Input{
		Route:   testRoute(180, domain.CrossingProtected),
		Weather: domain.WeatherSnapshot{WindSpeed: 22, WindDirection: 180, AdvisoryLevel: domain.AdvisoryNone},
	})
	assert.Empty(t, result.Factors)
}

func TestScoreGustAndTideStages(t *testing.T) {
	s := NewScorer(DefaultWeights())

	result := s.Score(Input{
		Route: testRoute(180, domain.CrossingProtected),
		Weather: domain.WeatherSnapshot{
			WindSpeed: 10, WindGusts: 50, WindDirection: 180,
			AdvisoryLevel: domain.AdvisoryNone,
		},
		Tide: &domain.TideSwing{SwingFeet: 12},
	})

	require.Len(t, result.Factors, 2)
	byKind := map[string]float64{}
	for _, f := range result.Factors {
		byKind[f.Kind] = f.Weight
	}
	assert.InDelta(t, 7.5, byKind[FactorGusts], 0.001) // (50-35)*0.5
	assert.InDelta(t, 15, byKind[FactorTide], 0.001)   // capped: (12-4)*2 = 16 -> 15
}

func TestScoreExposureStage(t *testing.T) {
	s := NewScorer(DefaultWeights())
	route, ok := domain.RouteByID("wh-vh-ssa")
	require.True(t, ok)

	t.Run("exposed direction", func(t *testing.T) {
		// 20 mph SW wind down Vineyard Sound: crosswind stage plus a
		// positive exposure modifier.
		result := s.Score(Input{
			Route:   route,
			Weather: domain.WeatherSnapshot{WindSpeed: 20, WindDirection: 225, AdvisoryLevel: domain.AdvisoryNone},
		})
		require.Len(t, result.Factors, 2)
		assert.Equal(t, FactorWindUnfavorable, result.Factors[0].Kind)
		assert.Equal(t, FactorExposureExposed, result.Factors[1].Kind)
		assert.Equal(t, 23, result.Score)
	})

	t.Run("sheltered direction reduces score", func(t *testing.T) {
		// 35 mph wind from the north: headwind stage, negative
		// exposure modifier from the Cape's lee.
		result := s.Score(Input{
			Route:   route,
			Weather: domain.WeatherSnapshot{WindSpeed: 35, WindDirection: 0, AdvisoryLevel: domain.AdvisoryNone},
		})
		require.Len(t, result.Factors, 2)
		assert.Equal(t, FactorExposureShelter, result.Factors[1].Kind)
		assert.Negative(t, result.Factors[1].Weight)
		assert.Equal(t, 35, result.Score)
	})

	t.Run("open water fallback for unmapped route", func(t *testing.T) {
		result := s.Score(Input{
			Route:   testRoute(90, domain.CrossingOpenWater),
			Weather: domain.WeatherSnapshot{WindSpeed: 18, WindDirection: 90, AdvisoryLevel: domain.AdvisoryNone},
		})
		require.Len(t, result.Factors, 1)
		assert.Equal(t, FactorOpenWater, result.Factors[0].Kind)
		assert.InDelta(t, 3.6, result.Factors[0].Weight, 0.001) // 18/5
	})
}

func TestScoreHistoricalStage(t *testing.T) {
	s := NewScorer(DefaultWeights())

	history := []domain.DisruptionHistory{
		{WindSpeed: 30, WindGusts: 40, ScheduledCount: 100, DelayedCount: 10, CanceledCount: 5},
		{WindSpeed: 60, WindGusts: 80, ScheduledCount: 50, DelayedCount: 40, CanceledCount: 10}, // out of tolerance
	}

	result := s.Score(Input{
		Route:             testRoute(180, domain.CrossingProtected),
		Weather:           domain.WeatherSnapshot{WindSpeed: 35, WindGusts: 45, WindDirection: 180, AdvisoryLevel: domain.AdvisoryNone},
		HistoricalMatches: history,
	})

	var hist *Factor
	for i := range result.Factors {
		if result.Factors[i].Kind == FactorHistoricalMatch {
			hist = &result.Factors[i]
		}
	}
	require.NotNil(t, hist)
	assert.InDelta(t, 6, hist.Weight, 0.001) // round(0.15 * 40)
}

func TestScoreConservativeFactor(t *testing.T) {
	s := NewScorer(DefaultWeights())
	weather := domain.WeatherSnapshot{WindSpeed: 35, WindDirection: 0, AdvisoryLevel: domain.AdvisoryNone}

	ssaRoute, ok := domain.RouteByID("hy-nan-ssa")
	require.True(t, ok)
	hlcRoute, ok := domain.RouteByID("hy-nan-hlc")
	require.True(t, ok)

	ssa := s.Score(Input{Route: ssaRoute, Weather: weather})
	hlc := s.Score(Input{Route: hlcRoute, Weather: weather})

	// Hy-Line's fast boats and more cautious cancellation behavior
	// amplify the same conditions.
	assert.Greater(t, hlc.Score, ssa.Score)
}

func TestScoreFactorOrdering(t *testing.T) {
	s := NewScorer(DefaultWeights())
	result := s.Score(Input{
		Route: testRoute(180, domain.CrossingProtected),
		Weather: domain.WeatherSnapshot{
			WindSpeed: 35, WindGusts: 50, WindDirection: 0,
			AdvisoryLevel: domain.AdvisorySmallCraft,
		},
		Tide: &domain.TideSwing{SwingFeet: 12},
	})

	require.GreaterOrEqual(t, len(result.Factors), 3)
	for i := 1; i < len(result.Factors); i++ {
		assert.GreaterOrEqual(t, result.Factors[i-1].Weight, result.Factors[i].Weight,
			"factors must be sorted by weight descending")
	}
}

func TestConfidenceTiers(t *testing.T) {
	s := NewScorer(DefaultWeights())
	route := testRoute(180, domain.CrossingProtected)
	weather := domain.WeatherSnapshot{WindSpeed: 5, AdvisoryLevel: domain.AdvisoryNone}

	// Far-from-current history entries: they count toward confidence but
	// never produce a factor, proving confidence is independent of score.
	farHistory := func(n int) []domain.DisruptionHistory {
		out := make([]domain.DisruptionHistory, n)
		for i := range out {
			out[i] = domain.DisruptionHistory{WindSpeed: 90, WindGusts: 120, ScheduledCount: 10}
		}
		return out
	}

	tests := []struct {
		name     string
		points   int
		matches  int
		expected Confidence
	}{
		{"no data", 0, 0, ConfidenceLow},
		{"points without matches", 60, 0, ConfidenceLow},
		{"medium tier", 10, 5, ConfidenceMedium},
		{"high tier", 50, 20, ConfidenceHigh},
		{"points high matches medium", 50, 5, ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Score(Input{
				Route:             route,
				Weather:           weather,
				HistoricalMatches: farHistory(tt.matches),
				DataPointCount:    tt.points,
			})
			assert.Equal(t, tt.expected, result.Confidence)
			assert.Empty(t, result.Factors)
		})
	}
}

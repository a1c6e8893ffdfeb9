package domain

import "time"

// AdvisoryLevel is the marine advisory in effect for a route's waters.
type AdvisoryLevel string

const (
	AdvisoryNone       AdvisoryLevel = "none"
	AdvisorySmallCraft AdvisoryLevel = "small_craft_advisory"
	AdvisoryGale       AdvisoryLevel = "gale_warning"
	AdvisoryStorm      AdvisoryLevel = "storm_warning"
	AdvisoryHurricane  AdvisoryLevel = "hurricane_warning"
)

// WeatherSnapshot is a point-in-time read of conditions for one scoring
// call. WindDirection is the direction the wind blows from, in degrees.
type WeatherSnapshot struct {
	WindSpeed     float64       `json:"wind_speed"`
	WindGusts     float64       `json:"wind_gusts"`
	WindDirection float64       `json:"wind_direction"`
	AdvisoryLevel AdvisoryLevel `json:"advisory_level"`
}

// TidePhase is the direction the tide is moving.
type TidePhase string

const (
	TideRising  TidePhase = "rising"
	TideFalling TidePhase = "falling"
)

// TideSwing summarizes the tide state around "now": the height difference
// between the nearest past and next extremes, and how long until the next.
type TideSwing struct {
	SwingFeet    float64   `json:"swing_feet"`
	HoursToNext  float64   `json:"hours_to_next"`
	CurrentPhase TidePhase `json:"current_phase"`
}

// DisruptionHistory aggregates past outcomes under similar weather, bucketed
// offline. May be empty; scoring degrades confidence instead of failing.
type DisruptionHistory struct {
	WindSpeed      float64 `json:"wind_speed"`
	WindGusts      float64 `json:"wind_gusts"`
	ScheduledCount int     `json:"scheduled_sailings"`
	DelayedCount   int     `json:"delayed_sailings"`
	CanceledCount  int     `json:"canceled_sailings"`
}

// WindSource identifies where a wind reading came from. Operator-measured
// readings always outrank the secondary weather service for display.
type WindSource string

const (
	WindSourceOperator WindSource = "operator"
	WindSourceWeather  WindSource = "weather_service"
)

// WindObservation is a single wind reading at a terminal.
type WindObservation struct {
	Terminal      string        `json:"terminal"`
	WindSpeed     float64       `json:"wind_speed"`
	WindGusts     float64       `json:"wind_gusts"`
	WindDirection float64       `json:"wind_direction"`
	Advisory      AdvisoryLevel `json:"advisory_level,omitempty"`
	Source        WindSource    `json:"source"`
	ObservedAt    time.Time     `json:"observed_at"`
}

// Fresh reports whether the observation is within the freshness window.
func (o WindObservation) Fresh(window time.Duration) bool {
	if o.ObservedAt.IsZero() {
		return false
	}
	return clock.Now().Sub(o.ObservedAt) <= window
}

// TideExtreme is one predicted high or low from the tide-station API.
type TideExtreme struct {
	Time   time.Time `json:"time"`
	Height float64   `json:"height_feet"`
	High   bool      `json:"high"`
}

// DeriveTideSwing computes the swing between the nearest past extreme and
// the next one relative to now. Returns ok=false when the extremes don't
// bracket now (stale or partial predictions).
func DeriveTideSwing(extremes []TideExtreme, now time.Time) (TideSwing, bool) {
	var prev, next *TideExtreme
	for i := range extremes {
		e := &extremes[i]
		if !e.Time.After(now) {
			if prev == nil || e.Time.After(prev.Time) {
				prev = e
			}
			continue
		}
		if next == nil || e.Time.Before(next.Time) {
			next = e
		}
	}
	if prev == nil || next == nil {
		return TideSwing{}, false
	}

	swing := next.Height - prev.Height
	phase := TideFalling
	if swing > 0 {
		phase = TideRising
	}
	if swing < 0 {
		swing = -swing
	}
	return TideSwing{
		SwingFeet:    swing,
		HoursToNext:  next.Time.Sub(now).Hours(),
		CurrentPhase: phase,
	}, true
}

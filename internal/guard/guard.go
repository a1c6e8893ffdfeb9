// Package guard holds the ingestion invariant checks. The checks monitor
// the reconciled data as it moves between storage and outbound responses;
// they never mutate anything and never block a response. A failed check is
// logged as a critical regression and surfaced through metrics.
package guard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// WindFreshnessWindow bounds how old an operator wind reading may be before
// the reading is treated as unavailable for display.
const WindFreshnessWindow = 30 * time.Minute

// Check names, used in log entries and metric labels.
const (
	CheckCancellationPersistence = "cancellation_persistence"
	CheckWindSourcePriority      = "wind_source_priority"
)

// CheckResult is the outcome of one invariant check.
type CheckResult struct {
	Check   string `json:"check"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Guard runs the invariant checks and logs violations.
type Guard struct {
	log *slog.Logger
}

// New creates a Guard logging through the given logger.
func New(log *slog.Logger) *Guard {
	return &Guard{log: log}
}

// CancellationPersistence verifies that an outbound response carries at
// least as many canceled sailings as are persisted for the service date.
// Fewer means cancellations were silently dropped somewhere between storage
// and the response.
func (g *Guard) CancellationPersistence(serviceDate string, responseCount, persistedCount int) CheckResult {
	if responseCount >= persistedCount {
		return CheckResult{Check: CheckCancellationPersistence, Valid: true}
	}

	msg := fmt.Sprintf("response has %d canceled sailings but %d are persisted for %s",
		responseCount, persistedCount, serviceDate)
	g.log.Error("cancellation persistence violation",
		slog.String("check", CheckCancellationPersistence),
		slog.String("service_date", serviceDate),
		slog.Int("response_count", responseCount),
		slog.Int("persisted_count", persistedCount),
	)
	return CheckResult{Check: CheckCancellationPersistence, Valid: false, Message: msg}
}

// SelectWindReading picks the wind reading to show end users for a
// terminal: the freshest operator-measured reading inside the freshness
// window, or nothing. A weather-service reading is never substituted for
// display; ok=false means the caller shows an explicit unavailable state.
func SelectWindReading(observations []domain.WindObservation, terminal string) (domain.WindObservation, bool) {
	var best domain.WindObservation
	found := false
	for _, o := range observations {
		if o.Terminal != terminal || o.Source != domain.WindSourceOperator {
			continue
		}
		if !o.Fresh(WindFreshnessWindow) {
			continue
		}
		if !found || o.ObservedAt.After(best.ObservedAt) {
			best = o
			found = true
		}
	}
	return best, found
}

// WindSourcePriority verifies that the reading chosen for display respects
// source ordering: a secondary weather-service reading must never be shown
// while a fresh operator reading for the same terminal exists.
func (g *Guard) WindSourcePriority(shown domain.WindObservation, available []domain.WindObservation) CheckResult {
	if shown.Source == domain.WindSourceOperator {
		return CheckResult{Check: CheckWindSourcePriority, Valid: true}
	}

	for _, o := range available {
		if o.Terminal != shown.Terminal || o.Source != domain.WindSourceOperator {
			continue
		}
		if !o.Fresh(WindFreshnessWindow) {
			continue
		}

		msg := fmt.Sprintf("weather-service reading shown for %s while an operator reading from %s is fresh",
			shown.Terminal, o.ObservedAt.Format(time.RFC3339))
		g.log.Error("wind source priority violation",
			slog.String("check", CheckWindSourcePriority),
			slog.String("terminal", shown.Terminal),
			slog.String("shown_source", string(shown.Source)),
			slog.Time("operator_observed_at", o.ObservedAt),
		)
		return CheckResult{Check: CheckWindSourcePriority, Valid: false, Message: msg}
	}
	return CheckResult{Check: CheckWindSourcePriority, Valid: true}
}

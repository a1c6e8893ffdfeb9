package reconcile

import (
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// MergeObservation folds a scraped observation onto an existing sailing.
// LastSeenAt always advances; FirstSeenAt and Origin never change. Status
// moves only when the observed status differs and the transition is legal,
// which makes canceled terminal and a status-less observation a no-op. An
// empty observed reason never clears a reason already on record. The bool
// reports whether the status changed.
func MergeObservation(existing domain.Sailing, obs domain.RawObservation, now time.Time) (domain.Sailing, bool) {
	merged := existing
	merged.LastSeenAt = now

	if obs.ArrivalTime != "" {
		merged.ArrivalTime = obs.ArrivalTime
	}
	if obs.StatusReason != "" {
		merged.StatusReason = obs.StatusReason
	}

	if obs.Status == existing.Status || !domain.CanTransition(existing.Status, obs.Status) {
		return merged, false
	}

	merged.Status = obs.Status
	return merged, true
}

// ApplyReason attaches a reason scraped from the operator's detail rows.
// Reasons only ever accumulate; a blank scrape leaves the record alone.
func ApplyReason(s domain.Sailing, reason string) (domain.Sailing, bool) {
	if reason == "" || reason == s.StatusReason {
		return s, false
	}
	s.StatusReason = reason
	return s, true
}

// Package reconcile merges raw scraped observations from the two scraper
// cadences into a canonical per-service-day sailing set, detects sailings
// silently removed from the operator's live view, and enforces the one-way
// cancellation rule on every merge path.
package reconcile

import (
	"sync"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// removalGraceWindow separates "already sailed" from "vanished before its
// time". A sailing missing from the live view is only flagged while its
// scheduled departure is within this window; beyond it the absence is
// treated as a natural departure.
const removalGraceWindow = 15 * time.Minute

// Canonical is the working set of sailings for one operator and one service
// date. It is explicit shared state: callers hold a reference and all
// methods serialize through one mutex, so a completed scrape merges as a
// unit rather than interleaving with another run.
type Canonical struct {
	mu          sync.Mutex
	operatorID  string
	loc         *time.Location
	serviceDate string
	sailings    map[string]domain.Sailing
	capturedAt  time.Time
}

// NewCanonical creates an empty canonical set for an operator. loc is the
// operator's local timezone, used to resolve departure times and "today".
func NewCanonical(operatorID string, loc *time.Location) *Canonical {
	return &Canonical{
		operatorID: operatorID,
		loc:        loc,
		sailings:   make(map[string]domain.Sailing),
	}
}

// UpdateSummary reports what one schedule merge did.
type UpdateSummary struct {
	ServiceDate string
	Added       int
	Updated     int
	RolledOver  bool
	ParseErrors int
}

// Update merges a full-schedule scrape into the canonical set. A new
// service date retires the previous day's set and starts empty. Existing
// sailings keep their FirstSeenAt; every observed sailing refreshes
// LastSeenAt. Cancellations in the set survive any later observation.
func (c *Canonical) Update(serviceDate string, observations []domain.RawObservation) UpdateSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := domain.Clock().Now()
	summary := UpdateSummary{ServiceDate: serviceDate}

	if serviceDate != c.serviceDate {
		c.serviceDate = serviceDate
		c.sailings = make(map[string]domain.Sailing)
		summary.RolledOver = true
	}
	c.capturedAt = now

	for _, obs := range observations {
		if obs.Kind != domain.ObservationSailing {
			summary.ParseErrors++
			continue
		}
		key := obs.SailingKey()

		existing, ok := c.sailings[key]
		if !ok {
			c.sailings[key] = domain.Sailing{
				Key:               key,
				ServiceDate:       serviceDate,
				DepartingTerminal: obs.DepartingTerminal,
				ArrivingTerminal:  obs.ArrivingTerminal,
				DepartureTime:     obs.DepartureTime,
				ArrivalTime:       obs.ArrivalTime,
				Status:            obs.Status,
				StatusReason:      obs.StatusReason,
				Origin:            domain.OriginScheduled,
				OperatorID:        c.operatorID,
				FirstSeenAt:       now,
				LastSeenAt:        now,
			}
			summary.Added++
			continue
		}

		merged, changed := MergeObservation(existing, obs, now)
		c.sailings[key] = merged
		if changed {
			summary.Updated++
		}
	}

	return summary
}

// DetectRemoved compares the canonical set against the live scraper's
// active-only view and synthesizes cancellation records for sailings that
// vanished before their time. Only valid when the canonical set is for
// today and non-empty; otherwise it returns nothing rather than guessing.
// Flagged sailings are also canceled in the canonical set so subsequent
// live scrapes don't re-flag them.
func (c *Canonical) DetectRemoved(liveKeys map[string]struct{}) []domain.Sailing {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := domain.Clock().Now().In(c.loc)
	if c.serviceDate != now.Format(domain.ServiceDateLayout) || len(c.sailings) == 0 {
		return nil
	}

	var removed []domain.Sailing
	for key, s := range c.sailings {
		if _, present := liveKeys[key]; present {
			continue
		}
		if s.Status == domain.StatusCanceled {
			continue
		}

		departure, err := s.DepartureAt(c.loc)
		if err != nil {
			// Can't place the sailing in time; absence proves nothing.
			continue
		}
		if !now.Before(departure.Add(removalGraceWindow)) {
			continue // already sailed
		}

		detectedAt := now
		s.Status = domain.StatusCanceled
		s.StatusReason = domain.RemovedStatusReason
		s.Origin = domain.OriginOperatorRemoved
		s.RemovedDetectedAt = &detectedAt
		c.sailings[key] = s
		removed = append(removed, s)
	}
	return removed
}

// Snapshot returns a copy of the canonical sailings and the service date
// they belong to.
func (c *Canonical) Snapshot() ([]domain.Sailing, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Sailing, 0, len(c.sailings))
	for _, s := range c.sailings {
		out = append(out, s)
	}
	return out, c.serviceDate
}

// Rollover explicitly retires the current set for a new service date. The
// same happens implicitly when Update sees a new date; the explicit form
// exists for the scheduled end-of-day job.
func (c *Canonical) Rollover(serviceDate string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if serviceDate == c.serviceDate {
		return
	}
	c.serviceDate = serviceDate
	c.sailings = make(map[string]domain.Sailing)
}

// ServiceDate returns the date the canonical set currently tracks.
func (c *Canonical) ServiceDate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serviceDate
}

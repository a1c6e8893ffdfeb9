// Package pipeline turns ingestion payloads into persisted sailing records:
// validate rows, merge into the operator's canonical set, detect removals
// on live scrapes, write through the store's merge contract, and publish a
// status change event for every transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/observability"
	"github.com/capecast/ferry-risk-service/internal/reconcile"
	"github.com/capecast/ferry-risk-service/internal/scrape"
	"github.com/capecast/ferry-risk-service/internal/store"
)

// Typed ingestion rejections, mapped to 4xx responses by the HTTP adapter.
var (
	ErrUnknownSource  = errors.New("unknown source operator")
	ErrUnknownScraper = errors.New("unknown scraper")
	ErrNoScheduleRows = errors.New("schedule scrape produced zero rows")
	ErrBadServiceDate = errors.New("invalid service date")
)

// EventPublisher emits status change events to downstream consumers.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, event domain.StatusChangeEvent) error
}

// Ingestor merges scraper payloads. One canonical set per operator; writes
// for one payload are serialized by the canonical set's own lock.
type Ingestor struct {
	canonicals map[string]*reconcile.Canonical
	store      store.SailingStore
	publisher  EventPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	loc        *time.Location
	ready      atomic.Bool
}

// NewIngestor creates an Ingestor for the known operators. publisher may be
// nil when eventing is disabled.
func NewIngestor(s store.SailingStore, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics, loc *time.Location) *Ingestor {
	return &Ingestor{
		canonicals: map[string]*reconcile.Canonical{
			domain.OperatorSSA:    reconcile.NewCanonical(domain.OperatorSSA, loc),
			domain.OperatorHyLine: reconcile.NewCanonical(domain.OperatorHyLine, loc),
		},
		store:     s,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		loc:       loc,
	}
}

// CheckReadiness returns nil once at least one payload has been merged.
func (i *Ingestor) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("no ingestion payload processed yet")
	}
	return nil
}

// Rollover retires every operator's canonical set for a new service date.
// Called by the scheduled end-of-day job.
func (i *Ingestor) Rollover(serviceDate string) {
	for _, c := range i.canonicals {
		c.Rollover(serviceDate)
	}
	i.logger.Info("canonical sets rolled over", "service_date", serviceDate)
}

// Process merges one payload. Parse errors in individual rows are counted
// and skipped, not fatal; only a malformed payload as a whole is rejected.
func (i *Ingestor) Process(ctx context.Context, p IngestPayload) (Result, error) {
	start := time.Now()

	canonical, ok := i.canonicals[p.Source]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownSource, p.Source)
	}
	if _, err := time.ParseInLocation(domain.ServiceDateLayout, p.ServiceDateLocal, i.loc); err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrBadServiceDate, p.ServiceDateLocal)
	}

	switch p.Scraper {
	case ScraperSchedule, ScraperHylineSchedule:
		if len(p.ScheduleRows) == 0 {
			i.metrics.ScrapeFailures.WithLabelValues(p.Source, string(scrape.FailureZeroRows)).Inc()
			return Result{}, ErrNoScheduleRows
		}
	case ScraperLiveStatus:
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownScraper, p.Scraper)
	}

	result := Result{StatusCounts: make(map[string]int)}
	observations := i.validateRows(p, &result)

	summary := canonical.Update(p.ServiceDateLocal, observations)
	if p.Scraper == ScraperLiveStatus {
		result.Removed = i.detectRemovals(canonical, observations, p.Source)
	}

	if err := i.persist(ctx, canonical, p, &result); err != nil {
		return Result{}, err
	}
	i.applyReasons(ctx, p, &result)
	i.saveConditions(ctx, p)

	i.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	i.ready.Store(true)

	i.logger.Info("payload merged",
		"request_id", p.RequestID,
		"source", p.Source,
		"scraper", p.Scraper,
		"service_date", p.ServiceDateLocal,
		"rows", len(p.ScheduleRows),
		"added", summary.Added,
		"removed", result.Removed,
		"parse_errors", result.ParseErrors,
	)
	return result, nil
}

func (i *Ingestor) validateRows(p IngestPayload, result *Result) []domain.RawObservation {
	observations := make([]domain.RawObservation, 0, len(p.ScheduleRows))
	for _, row := range p.ScheduleRows {
		obs := domain.ValidateObservation(row.DepartingTerminal, row.ArrivingTerminal,
			row.DepartureTimeLocal, row.ArrivalTimeLocal, row.Status, row.StatusReason)
		if obs.Kind == domain.ObservationParseError {
			result.ParseErrors++
			i.metrics.ParseErrors.WithLabelValues(p.Source, p.Scraper).Inc()
			i.logger.Warn("row rejected", "source", p.Source, "scraper", p.Scraper, "error", obs.ParseError)
			continue
		}
		observations = append(observations, obs)
		result.StatusCounts[statusLabel(obs.Status)]++
		i.metrics.ObservationsIngested.WithLabelValues(p.Source, p.Scraper).Inc()
	}
	return observations
}

func (i *Ingestor) detectRemovals(canonical *reconcile.Canonical, observations []domain.RawObservation, source string) int {
	// An empty live view never drives removal detection. When the view is
	// legitimately empty every remaining sailing has already departed and
	// the grace window would flag nothing; when it is bogus (a bot-check
	// page mis-read as success) acting on it would cancel every remaining
	// sailing of the day, and cancellation is irreversible.
	if len(observations) == 0 {
		i.logger.Warn("empty live view, skipping removal detection", "source", source)
		return 0
	}

	liveKeys := make(map[string]struct{}, len(observations))
	for _, obs := range observations {
		liveKeys[obs.SailingKey()] = struct{}{}
	}

	removed := canonical.DetectRemoved(liveKeys)
	for _, s := range removed {
		i.logger.Warn("sailing removed from operator schedule",
			"source", source, "key", s.Key, "departure", s.DepartureTime)
		i.metrics.RemovalsDetected.WithLabelValues(source).Inc()
	}
	return len(removed)
}

// persist writes the canonical snapshot through the store's merge contract
// and publishes an event for every status change the write applied.
func (i *Ingestor) persist(ctx context.Context, canonical *reconcile.Canonical, p IngestPayload, result *Result) error {
	sailings, date := canonical.Snapshot()
	for _, s := range sailings {
		if s.ServiceDate != date {
			continue
		}

		res, err := i.store.UpsertSailing(ctx, s)
		if err != nil {
			return fmt.Errorf("persist sailing %s: %w", s.Key, err)
		}

		switch {
		case res.Created:
			result.Created++
			i.metrics.SailingUpserts.WithLabelValues(p.Source, "created").Inc()
		case res.StatusChanged:
			result.Updated++
			i.metrics.SailingUpserts.WithLabelValues(p.Source, "updated").Inc()
		default:
			i.metrics.SailingUpserts.WithLabelValues(p.Source, "unchanged").Inc()
		}

		if res.StatusChanged {
			i.metrics.StatusChanges.WithLabelValues(p.Source, statusLabel(res.NewStatus)).Inc()
			i.publish(ctx, s, res)
		}
	}
	return nil
}

func (i *Ingestor) publish(ctx context.Context, s domain.Sailing, res store.UpsertResult) {
	if i.publisher == nil {
		return
	}

	event := domain.StatusChangeEvent{
		SailingKey:  s.Key,
		ServiceDate: s.ServiceDate,
		OperatorID:  s.OperatorID,
		OldStatus:   res.OldStatus,
		NewStatus:   res.NewStatus,
		Reason:      s.StatusReason,
		Origin:      s.Origin,
		ChangedAt:   domain.Clock().Now(),
	}
	if err := i.publisher.PublishStatusChange(ctx, event); err != nil {
		i.logger.Error("publish status change failed", "key", s.Key, "error", err)
		i.metrics.EventPublishErrors.Inc()
		return
	}
	i.metrics.EventsPublished.Inc()
}

func (i *Ingestor) applyReasons(ctx context.Context, p IngestPayload, result *Result) {
	for _, row := range p.ReasonRows {
		key := domain.SailingKey(row.DepartingTerminal, row.ArrivingTerminal, row.DepartureTimeLocal)
		applied, err := i.store.ApplyReason(ctx, p.ServiceDateLocal, key, row.StatusReason)
		if err != nil {
			i.logger.Error("apply reason failed", "key", key, "error", err)
			continue
		}
		if applied {
			result.ReasonsApplied++
			i.metrics.ReasonsApplied.WithLabelValues(p.Source).Inc()
		}
	}
}

func (i *Ingestor) saveConditions(ctx context.Context, p IngestPayload) {
	for _, o := range p.Conditions {
		if err := i.store.SaveWindObservation(ctx, o); err != nil {
			i.logger.Error("save wind observation failed", "terminal", o.Terminal, "error", err)
		}
	}
}

func statusLabel(s domain.OperatorStatus) string {
	if s == domain.StatusNone {
		return "scheduled"
	}
	return string(s)
}

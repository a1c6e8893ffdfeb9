package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/observability"
	"github.com/capecast/ferry-risk-service/internal/store"
)

type capturePublisher struct {
	events []domain.StatusChangeEvent
}

func (c *capturePublisher) PublishStatusChange(_ context.Context, e domain.StatusChangeEvent) error {
	c.events = append(c.events, e)
	return nil
}

func testIngestor(t *testing.T) (*Ingestor, *store.MemoryStore, *capturePublisher) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	mem := store.NewMemory()
	pub := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ing := NewIngestor(mem, pub, logger, observability.NewMetricsForTesting(), loc)
	return ing, mem, pub
}

func freezeEastern(t *testing.T, year int, month time.Month, day, hour, minute int) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(year, month, day, hour, minute, 0, 0, loc)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func schedulePayload(rows ...ScheduleRow) IngestPayload {
	return IngestPayload{
		RequestID:        "11111111-2222-3333-4444-555555555555",
		Source:           domain.OperatorSSA,
		Trigger:          "auto",
		Scraper:          ScraperSchedule,
		ServiceDateLocal: "2026-03-14",
		Timezone:         "America/New_York",
		ScheduleRows:     rows,
	}
}

func TestProcess_ScheduleScrape(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, mem, pub := testIngestor(t)

	result, err := ing.Process(context.Background(), schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM"},
		ScheduleRow{DepartingTerminal: "Vineyard Haven", ArrivingTerminal: "Woods Hole", DepartureTimeLocal: "9:30 AM", Status: "on_time"},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.ParseErrors)
	assert.Equal(t, map[string]int{"scheduled": 1, "on_time": 1}, result.StatusCounts)

	persisted, err := mem.ListSailings(context.Background(), "2026-03-14")
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	// No status transitions beyond initial creation, so no events.
	assert.Empty(t, pub.events)
	assert.NoError(t, ing.CheckReadiness(context.Background()))
}

func TestProcess_CancellationPublishesEvent(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, mem, pub := testIngestor(t)
	ctx := context.Background()

	_, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "on_time"},
	))
	require.NoError(t, err)

	result, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "canceled", StatusReason: "High winds"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.Equal(t, domain.StatusOnTime, event.OldStatus)
	assert.Equal(t, domain.StatusCanceled, event.NewStatus)
	assert.Equal(t, "High winds", event.Reason)

	// A later on_time observation must not revert the cancellation.
	_, err = ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "on_time"},
	))
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)

	persisted, err := mem.ListSailings(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, persisted[0].Status)
	assert.Equal(t, "High winds", persisted[0].StatusReason)
}

func TestProcess_LiveScrapeDetectsRemoval(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 14, 0)
	ing, mem, pub := testIngestor(t)
	ctx := context.Background()

	_, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "3:45 PM"},
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "5:00 PM"},
	))
	require.NoError(t, err)

	live := schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "5:00 PM"},
	)
	live.Scraper = ScraperLiveStatus

	result, err := ing.Process(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.StatusCanceled, pub.events[0].NewStatus)
	assert.Equal(t, domain.OriginOperatorRemoved, pub.events[0].Origin)

	persisted, err := mem.ListSailings(ctx, "2026-03-14")
	require.NoError(t, err)
	removedCount := 0
	for _, s := range persisted {
		if s.Origin == domain.OriginOperatorRemoved {
			removedCount++
			assert.Equal(t, domain.RemovedStatusReason, s.StatusReason)
		}
	}
	assert.Equal(t, 1, removedCount)
}

func TestProcess_LiveScrapeWithZeroRowsIsAccepted(t *testing.T) {
	// An empty live view late in the day just means nothing is active.
	freezeEastern(t, 2026, 3, 14, 23, 0)
	ing, _, _ := testIngestor(t)

	live := schedulePayload()
	live.Scraper = ScraperLiveStatus

	_, err := ing.Process(context.Background(), live)
	assert.NoError(t, err)
}

func TestProcess_EmptyLiveViewNeverDrivesRemovals(t *testing.T) {
	// A bot-check page mis-read as a successful empty scrape must not
	// cancel the rest of the day.
	freezeEastern(t, 2026, 3, 14, 14, 0)
	ing, mem, pub := testIngestor(t)
	ctx := context.Background()

	_, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "3:45 PM"},
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "5:00 PM"},
	))
	require.NoError(t, err)

	live := schedulePayload()
	live.Scraper = ScraperLiveStatus

	result, err := ing.Process(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.Empty(t, pub.events)

	persisted, err := mem.ListSailings(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	for _, s := range persisted {
		assert.NotEqual(t, domain.StatusCanceled, s.Status, s.Key)
	}
}

func TestProcess_StatusLessRescrapeKeepsDelayed(t *testing.T) {
	// The 30-minute schedule scrape carries no status; it must not revert
	// a delayed status set by the 3-minute live scrape, nor publish a
	// spurious event.
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, mem, pub := testIngestor(t)
	ctx := context.Background()

	_, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "on_time"},
	))
	require.NoError(t, err)

	live := schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "delayed", StatusReason: "Mechanical issue"},
	)
	live.Scraper = ScraperLiveStatus
	_, err = ing.Process(ctx, live)
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	_, err = ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM"},
	))
	require.NoError(t, err)

	assert.Len(t, pub.events, 1)
	persisted, err := mem.ListSailings(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, domain.StatusDelayed, persisted[0].Status)
	assert.Equal(t, "Mechanical issue", persisted[0].StatusReason)
}

func TestProcess_ReasonRows(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, mem, _ := testIngestor(t)
	ctx := context.Background()

	_, err := ing.Process(ctx, schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "canceled"},
	))
	require.NoError(t, err)

	p := schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", Status: "canceled"},
	)
	p.ReasonRows = []ReasonRow{
		{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM", StatusReason: "Cancelled due to Weather"},
		{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "11:00 PM", StatusReason: "No such sailing"},
	}

	result, err := ing.Process(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReasonsApplied)

	persisted, err := mem.ListSailings(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled due to Weather", persisted[0].StatusReason)
}

func TestProcess_Conditions(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, mem, _ := testIngestor(t)

	p := schedulePayload(
		ScheduleRow{DepartingTerminal: "Hyannis", ArrivingTerminal: "Nantucket", DepartureTimeLocal: "8:15 AM"},
	)
	p.Source = domain.OperatorHyLine
	p.Scraper = ScraperHylineSchedule
	observedAt := domain.Clock().Now()
	p.Conditions = []domain.WindObservation{
		{Terminal: "Hyannis", WindSpeed: 28, WindGusts: 36, WindDirection: 180, Source: domain.WindSourceOperator, ObservedAt: observedAt},
	}

	_, err := ing.Process(context.Background(), p)
	require.NoError(t, err)

	obs, err := mem.RecentWindObservations(context.Background(), "Hyannis", observedAt.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 28.0, obs[0].WindSpeed)
}

func TestProcess_ParseErrorsAreCountedNotFatal(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, _, _ := testIngestor(t)

	result, err := ing.Process(context.Background(), schedulePayload(
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM"},
		ScheduleRow{DepartingTerminal: "", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "9:30 AM"},
		ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "later"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ParseErrors)
	assert.Equal(t, 1, result.Created)
}

func TestProcess_Rejections(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, _, _ := testIngestor(t)
	ctx := context.Background()

	row := ScheduleRow{DepartingTerminal: "Woods Hole", ArrivingTerminal: "Vineyard Haven", DepartureTimeLocal: "8:35 AM"}

	t.Run("unknown source", func(t *testing.T) {
		p := schedulePayload(row)
		p.Source = "island-queen"
		_, err := ing.Process(ctx, p)
		assert.ErrorIs(t, err, ErrUnknownSource)
	})

	t.Run("unknown scraper", func(t *testing.T) {
		p := schedulePayload(row)
		p.Scraper = "mystery"
		_, err := ing.Process(ctx, p)
		assert.ErrorIs(t, err, ErrUnknownScraper)
	})

	t.Run("bad service date", func(t *testing.T) {
		p := schedulePayload(row)
		p.ServiceDateLocal = "03/14/2026"
		_, err := ing.Process(ctx, p)
		assert.ErrorIs(t, err, ErrBadServiceDate)
	})

	t.Run("schedule scrape with zero rows", func(t *testing.T) {
		_, err := ing.Process(ctx, schedulePayload())
		assert.ErrorIs(t, err, ErrNoScheduleRows)
	})
}

func TestCheckReadiness(t *testing.T) {
	freezeEastern(t, 2026, 3, 14, 6, 0)
	ing, _, _ := testIngestor(t)

	assert.Error(t, ing.CheckReadiness(context.Background()))
}

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/observability"
)

// TideFetcher fetches predicted tide extremes for one station and day.
type TideFetcher interface {
	TideExtremes(ctx context.Context, stationID string, day time.Time, loc *time.Location) ([]domain.TideExtreme, error)
}

// TideCache holds the latest tide extremes per port, refreshed on a
// schedule. Reads derive the current swing from the cached extremes, so a
// failed refresh degrades to staleness rather than an error.
type TideCache struct {
	fetcher  TideFetcher
	stations map[string]string // port slug -> station id
	logger   *slog.Logger
	metrics  *observability.Metrics
	loc      *time.Location

	mu       sync.RWMutex
	extremes map[string][]domain.TideExtreme
}

// NewTideCache creates an empty cache over the given port-to-station map.
func NewTideCache(fetcher TideFetcher, stations map[string]string, logger *slog.Logger, metrics *observability.Metrics, loc *time.Location) *TideCache {
	return &TideCache{
		fetcher:  fetcher,
		stations: stations,
		logger:   logger,
		metrics:  metrics,
		loc:      loc,
		extremes: make(map[string][]domain.TideExtreme),
	}
}

// Refresh fetches fresh extremes for every port. A port that fails keeps
// its previous extremes; the first error is returned after all ports have
// been attempted.
func (tc *TideCache) Refresh(ctx context.Context) error {
	day := domain.Clock().Now().In(tc.loc)

	var firstErr error
	for slug, station := range tc.stations {
		extremes, err := tc.fetcher.TideExtremes(ctx, station, day, tc.loc)
		if err != nil {
			tc.logger.Error("tide refresh failed", "port", slug, "station", station, "error", err)
			tc.metrics.TideRefreshes.WithLabelValues("error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		tc.mu.Lock()
		tc.extremes[slug] = extremes
		tc.mu.Unlock()
		tc.metrics.TideRefreshes.WithLabelValues("success").Inc()
	}
	return firstErr
}

// CurrentSwing derives the tide swing at a port right now. ok=false when
// the cached extremes are missing or don't bracket the current time.
func (tc *TideCache) CurrentSwing(_ context.Context, portSlug string) (domain.TideSwing, bool) {
	tc.mu.RLock()
	extremes := tc.extremes[portSlug]
	tc.mu.RUnlock()

	if len(extremes) == 0 {
		return domain.TideSwing{}, false
	}
	return domain.DeriveTideSwing(extremes, domain.Clock().Now().In(tc.loc))
}

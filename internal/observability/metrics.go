package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion and scoring pipeline.
type Metrics struct {
	ObservationsIngested *prometheus.CounterVec // labels: operator, scraper
	ParseErrors          *prometheus.CounterVec // labels: operator, scraper
	SailingUpserts       *prometheus.CounterVec // labels: operator, result={created,updated,unchanged}
	StatusChanges        *prometheus.CounterVec // labels: operator, new_status
	RemovalsDetected     *prometheus.CounterVec // labels: operator
	ReasonsApplied       *prometheus.CounterVec // labels: operator
	GuardViolations      *prometheus.CounterVec // labels: check
	ScrapeFailures       *prometheus.CounterVec // labels: operator, class
	EventsPublished      prometheus.Counter
	EventPublishErrors   prometheus.Counter
	TideRefreshes        *prometheus.CounterVec // labels: outcome={success,error}

	IngestDuration prometheus.Histogram
	RiskScores     prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ObservationsIngested,
		m.ParseErrors,
		m.SailingUpserts,
		m.StatusChanges,
		m.RemovalsDetected,
		m.ReasonsApplied,
		m.GuardViolations,
		m.ScrapeFailures,
		m.EventsPublished,
		m.EventPublishErrors,
		m.TideRefreshes,
		m.IngestDuration,
		m.RiskScores,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "observations_ingested_total",
			Help:      "Scraped sailing observations accepted by the ingestion endpoint.",
		}, []string{"operator", "scraper"}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "parse_errors_total",
			Help:      "Scraped rows rejected by observation validation.",
		}, []string{"operator", "scraper"}),
		SailingUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "sailing_upserts_total",
			Help:      "Sailing writes by outcome.",
		}, []string{"operator", "result"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "status_changes_total",
			Help:      "Operator status transitions applied to persisted sailings.",
		}, []string{"operator", "new_status"}),
		RemovalsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "removals_detected_total",
			Help:      "Sailings flagged as silently removed from the operator's live view.",
		}, []string{"operator"}),
		ReasonsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "reasons_applied_total",
			Help:      "Cancellation reasons attached to persisted sailings.",
		}, []string{"operator"}),
		GuardViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "guard_violations_total",
			Help:      "Ingestion invariant check failures.",
		}, []string{"check"}),
		ScrapeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "scrape_failures_total",
			Help:      "Failed scrape runs by failure class.",
		}, []string{"operator", "class"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "events_published_total",
			Help:      "Status change events written to the status topic.",
		}),
		EventPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "event_publish_errors_total",
			Help:      "Failed writes to the status topic.",
		}),
		TideRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferry_risk",
			Name:      "tide_refreshes_total",
			Help:      "Scheduled tide prediction refreshes by outcome.",
		}, []string{"outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ferry_risk",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete ingestion payload merge.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		RiskScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ferry_risk",
			Name:      "risk_scores",
			Help:      "Distribution of computed route risk scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}

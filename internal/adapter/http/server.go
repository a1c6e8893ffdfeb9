// Package http exposes the service's HTTP surface: the scraper ingestion
// endpoint, the risk-annotated sailing board, terminal wind conditions,
// and the health/readiness/metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/guard"
	"github.com/capecast/ferry-risk-service/internal/observability"
	"github.com/capecast/ferry-risk-service/internal/pipeline"
	"github.com/capecast/ferry-risk-service/internal/scoring"
	"github.com/capecast/ferry-risk-service/internal/store"
)

// Ingestor merges scraper payloads and reports readiness.
type Ingestor interface {
	Process(ctx context.Context, p pipeline.IngestPayload) (pipeline.Result, error)
	CheckReadiness(ctx context.Context) error
}

// TideProvider reports the current tide swing at a port, when known.
type TideProvider interface {
	CurrentSwing(ctx context.Context, portSlug string) (domain.TideSwing, bool)
}

// ServerConfig bundles the server's collaborators.
type ServerConfig struct {
	Addr          string
	Token         string
	Ingestor      Ingestor
	Store         store.SailingStore
	Guard         *guard.Guard
	RouteScorer   *scoring.Scorer
	SailingScorer *scoring.SailingScorer
	Tides         TideProvider // may be nil
	Metrics       *observability.Metrics
	Logger        *slog.Logger
	Location      *time.Location
}

// Server exposes the ingestion and board API plus operational endpoints.
type Server struct {
	httpServer  *http.Server
	ingestor    Ingestor
	store       store.SailingStore
	guard       *guard.Guard
	routeScorer *scoring.Scorer
	scorer      *scoring.SailingScorer
	tides       TideProvider
	metrics     *observability.Metrics
	logger      *slog.Logger
	loc         *time.Location
	token       string
}

// NewServer wires the API routes onto a configured http.Server.
func NewServer(sc ServerConfig) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         sc.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ingestor:    sc.Ingestor,
		store:       sc.Store,
		guard:       sc.Guard,
		routeScorer: sc.RouteScorer,
		scorer:      sc.SailingScorer,
		tides:       sc.Tides,
		metrics:     sc.Metrics,
		logger:      sc.Logger,
		loc:         sc.Location,
		token:       sc.Token,
	}

	mux.HandleFunc("POST /api/ingest", s.requireToken(s.handleIngest))
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("GET /api/risk", s.handleRouteRisk)
	mux.HandleFunc("GET /api/conditions", s.handleConditions)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// ingestResponse is the contract the scrapers depend on.
type ingestResponse struct {
	Success        bool           `json:"success"`
	StatusCounts   map[string]int `json:"status_counts,omitempty"`
	ReasonsApplied int            `json:"reasons_applied,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, ingestResponse{Success: false, Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var payload pipeline.IngestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, ingestResponse{Success: false, Error: "malformed payload: " + err.Error()})
		return
	}

	result, err := s.ingestor.Process(r.Context(), payload)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, pipeline.ErrUnknownSource),
			errors.Is(err, pipeline.ErrUnknownScraper),
			errors.Is(err, pipeline.ErrBadServiceDate):
			status = http.StatusBadRequest
		case errors.Is(err, pipeline.ErrNoScheduleRows):
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, ingestResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:        true,
		StatusCounts:   result.StatusCounts,
		ReasonsApplied: result.ReasonsApplied,
	})
}

// boardSailing is one row of the public sailing board.
type boardSailing struct {
	domain.Sailing
	Risk *scoring.SailingRisk `json:"risk,omitempty"`
}

type boardResponse struct {
	ServiceDate   string         `json:"service_date"`
	Sailings      []boardSailing `json:"sailings"`
	CanceledCount int            `json:"canceled_count"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = domain.Clock().Now().In(s.loc).Format(domain.ServiceDateLayout)
	} else if _, err := time.ParseInLocation(domain.ServiceDateLayout, date, s.loc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	sailings, err := s.store.ListSailings(r.Context(), date)
	if err != nil {
		s.logger.Error("list sailings failed", "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	resp := boardResponse{ServiceDate: date, Sailings: make([]boardSailing, 0, len(sailings))}
	for _, sl := range sailings {
		row := boardSailing{Sailing: sl}
		if risk, ok := s.scoreSailing(r.Context(), sl); ok {
			row.Risk = &risk
		}
		if sl.Status == domain.StatusCanceled {
			resp.CanceledCount++
		}
		resp.Sailings = append(resp.Sailings, row)
	}

	s.checkCancellations(r.Context(), date, resp.CanceledCount)
	writeJSON(w, http.StatusOK, resp)
}

// scoreSailing annotates a sailing with directional risk when a recent
// wind reading exists for its departing terminal. Scoring may use either
// wind source; the display-priority rule only governs raw readings.
func (s *Server) scoreSailing(ctx context.Context, sl domain.Sailing) (scoring.SailingRisk, bool) {
	route, ok := domain.RouteForTerminals(sl.DepartingTerminal, sl.ArrivingTerminal, sl.OperatorID)
	if !ok {
		return scoring.SailingRisk{}, false
	}

	since := domain.Clock().Now().Add(-guard.WindFreshnessWindow)
	observations, err := s.store.RecentWindObservations(ctx, sl.DepartingTerminal, since)
	if err != nil || len(observations) == 0 {
		return scoring.SailingRisk{}, false
	}

	latest := observations[0]
	for _, o := range observations[1:] {
		if o.ObservedAt.After(latest.ObservedAt) {
			latest = o
		}
	}

	weather := domain.WeatherSnapshot{
		WindSpeed:     latest.WindSpeed,
		WindGusts:     latest.WindGusts,
		WindDirection: latest.WindDirection,
		AdvisoryLevel: latest.Advisory,
	}
	if weather.AdvisoryLevel == "" {
		weather.AdvisoryLevel = domain.AdvisoryNone
	}

	risk := s.scorer.Score(sl, weather, route.ID)
	s.metrics.RiskScores.Observe(float64(risk.Score))
	return risk, true
}

// checkCancellations runs the persistence guard on the outbound board.
// Violations are recorded, never served as errors.
func (s *Server) checkCancellations(ctx context.Context, date string, responseCount int) {
	persisted, err := s.store.CountCanceled(ctx, date)
	if err != nil {
		s.logger.Error("count canceled failed", "date", date, "error", err)
		return
	}
	if result := s.guard.CancellationPersistence(date, responseCount, persisted); !result.Valid {
		s.metrics.GuardViolations.WithLabelValues(result.Check).Inc()
	}
}

// riskResponse is the route-level risk view. Available is false when no
// recent wind reading exists for the route's origin terminal; risk is
// never computed from synthetic weather.
type riskResponse struct {
	RouteID   string          `json:"route_id"`
	Available bool            `json:"available"`
	Result    *scoring.Result `json:"result,omitempty"`
}

func (s *Server) handleRouteRisk(w http.ResponseWriter, r *http.Request) {
	routeID := r.URL.Query().Get("route")
	if routeID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "route is required"})
		return
	}
	route, ok := domain.RouteByID(routeID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown route " + routeID})
		return
	}

	terminal := domain.Ports[route.Origin].Name
	since := domain.Clock().Now().Add(-guard.WindFreshnessWindow)
	observations, err := s.store.RecentWindObservations(r.Context(), terminal, since)
	if err != nil {
		s.logger.Error("recent wind observations failed", "terminal", terminal, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}
	if len(observations) == 0 {
		writeJSON(w, http.StatusOK, riskResponse{RouteID: routeID, Available: false})
		return
	}

	latest := observations[0]
	for _, o := range observations[1:] {
		if o.ObservedAt.After(latest.ObservedAt) {
			latest = o
		}
	}

	in := scoring.Input{
		Route: route,
		Weather: domain.WeatherSnapshot{
			WindSpeed:     latest.WindSpeed,
			WindGusts:     latest.WindGusts,
			WindDirection: latest.WindDirection,
			AdvisoryLevel: latest.Advisory,
		},
		DataPointCount: len(observations),
	}
	if in.Weather.AdvisoryLevel == "" {
		in.Weather.AdvisoryLevel = domain.AdvisoryNone
	}
	if s.tides != nil {
		if swing, ok := s.tides.CurrentSwing(r.Context(), route.Origin); ok {
			in.Tide = &swing
		}
	}

	result := s.routeScorer.Score(in)
	s.metrics.RiskScores.Observe(float64(result.Score))
	writeJSON(w, http.StatusOK, riskResponse{RouteID: routeID, Available: true, Result: &result})
}

// conditionsResponse reports terminal wind. Available is false whenever no
// operator reading is inside the freshness window; the weather-service
// reading is never substituted here.
type conditionsResponse struct {
	Terminal  string                  `json:"terminal"`
	Available bool                    `json:"available"`
	Reading   *domain.WindObservation `json:"reading,omitempty"`
}

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	terminal := r.URL.Query().Get("terminal")
	if terminal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "terminal is required"})
		return
	}

	since := domain.Clock().Now().Add(-guard.WindFreshnessWindow)
	observations, err := s.store.RecentWindObservations(r.Context(), terminal, since)
	if err != nil {
		s.logger.Error("recent wind observations failed", "terminal", terminal, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	reading, ok := guard.SelectWindReading(observations, terminal)
	if !ok {
		writeJSON(w, http.StatusOK, conditionsResponse{Terminal: terminal, Available: false})
		return
	}

	if result := s.guard.WindSourcePriority(reading, observations); !result.Valid {
		s.metrics.GuardViolations.WithLabelValues(result.Check).Inc()
	}
	writeJSON(w, http.StatusOK, conditionsResponse{Terminal: terminal, Available: true, Reading: &reading})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.ingestor.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

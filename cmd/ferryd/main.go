package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/capecast/ferry-risk-service/internal/adapter/http"
	kafkaadapter "github.com/capecast/ferry-risk-service/internal/adapter/kafka"
	"github.com/capecast/ferry-risk-service/internal/adapter/noaa"
	"github.com/capecast/ferry-risk-service/internal/config"
	"github.com/capecast/ferry-risk-service/internal/domain"
	"github.com/capecast/ferry-risk-service/internal/guard"
	"github.com/capecast/ferry-risk-service/internal/observability"
	"github.com/capecast/ferry-risk-service/internal/pipeline"
	"github.com/capecast/ferry-risk-service/internal/scoring"
	"github.com/capecast/ferry-risk-service/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DBPath)

	// Status-change events are feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.EventPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaStatusTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	tideClient := noaa.NewClient(cfg.NOAABaseURL, cfg.NOAATimeout, logger)
	tides := pipeline.NewTideCache(tideClient, stationMap(), logger, metrics, loc)

	ingestor := pipeline.NewIngestor(db, publisher, logger, metrics, loc)

	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:          cfg.HTTPAddr,
		Token:         cfg.IngestToken,
		Ingestor:      ingestor,
		Store:         db,
		Guard:         guard.New(logger),
		RouteScorer:   scoring.NewScorer(scoring.DefaultWeights()),
		SailingScorer: scoring.NewSailingScorer(scoring.DefaultSailingWeights()),
		Tides:         tides,
		Metrics:       metrics,
		Logger:        logger,
		Location:      loc,
	})

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(cfg.TideRefreshSchedule, func() {
		if err := tides.Refresh(ctx); err != nil {
			logger.Error("tide refresh failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid tide refresh schedule", "schedule", cfg.TideRefreshSchedule, "error", err)
		os.Exit(1)
	}
	if _, err := sched.AddFunc(cfg.RolloverSchedule, func() {
		serviceDate := domain.Clock().Now().In(loc).Format("2006-01-02")
		ingestor.Rollover(serviceDate)
		logger.Info("service date rolled over", "service_date", serviceDate)
	}); err != nil {
		logger.Error("invalid rollover schedule", "schedule", cfg.RolloverSchedule, "error", err)
		os.Exit(1)
	}
	sched.Start()

	// Warm the tide cache so the first risk reads have swing data.
	go func() {
		if err := tides.Refresh(ctx); err != nil {
			logger.Warn("initial tide refresh failed", "error", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("ferry risk service started", "addr", cfg.HTTPAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	cronCtx := sched.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// stationMap pairs every tracked port with its tide station.
func stationMap() map[string]string {
	m := make(map[string]string, len(domain.Ports))
	for slug := range domain.Ports {
		if id, ok := noaa.StationForPort(slug); ok {
			m[slug] = id
		}
	}
	return m
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// IngestToken is the bearer secret the scrapers authenticate with.
	IngestToken string

	DBPath   string
	Timezone string

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaStatusTopic string

	NOAABaseURL string
	NOAATimeout time.Duration

	// Cron expressions for the background jobs.
	TideRefreshSchedule string
	RolloverSchedule    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	noaaTimeout, err := parseDurationEnv("NOAA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(envOrDefault("KAFKA_BROKERS", ""))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		IngestToken: os.Getenv("INGEST_TOKEN"),

		DBPath:   envOrDefault("DB_PATH", "ferry.db"),
		Timezone: envOrDefault("TIMEZONE", "America/New_York"),

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     brokers,
		KafkaStatusTopic: envOrDefault("KAFKA_STATUS_TOPIC", "sailing-status-changes"),

		NOAABaseURL: envOrDefault("NOAA_BASE_URL", "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"),
		NOAATimeout: noaaTimeout,

		TideRefreshSchedule: envOrDefault("TIDE_REFRESH_SCHEDULE", "*/30 * * * *"),
		RolloverSchedule:    envOrDefault("ROLLOVER_SCHEDULE", "5 0 * * *"),
	}

	if cfg.IngestToken == "" {
		return nil, errors.New("INGEST_TOKEN is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

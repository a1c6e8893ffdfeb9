package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "secret", cfg.IngestToken)
	assert.Equal(t, "ferry.db", cfg.DBPath)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "sailing-status-changes", cfg.KafkaStatusTopic)
	assert.Equal(t, 10*time.Second, cfg.NOAATimeout)
	assert.Equal(t, "*/30 * * * *", cfg.TideRefreshSchedule)
	assert.Equal(t, "5 0 * * *", cfg.RolloverSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DB_PATH", "/var/lib/ferry/ferry.db")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_STATUS_TOPIC", "custom-status")
	t.Setenv("NOAA_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/ferry/ferry.db", cfg.DBPath)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-status", cfg.KafkaStatusTopic)
	assert.Equal(t, 5*time.Second, cfg.NOAATimeout)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_TOKEN")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")
	t.Setenv("KAFKA_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEZONE")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_KafkaDisabledOverride(t *testing.T) {
	t.Setenv("INGEST_TOKEN", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "tc-correction-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "tc-corrected-intensity", cfg.KafkaSinkTopic)
	assert.Equal(t, "tc-bias-correction", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, 4, cfg.CorrectionWorkers)
	assert.Equal(t, "lognorm", cfg.DefaultFamily)
	assert.Equal(t, qdm.Ratio, cfg.DefaultMode)
	assert.Equal(t, 1e-6, cfg.ClipEpsilon)
	assert.Equal(t, 128, cfg.FitCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("CORRECTION_WORKERS", "8")
	t.Setenv("DEFAULT_FAMILY", "weibull_min")
	t.Setenv("DEFAULT_MODE", "additive")
	t.Setenv("CLIP_EPSILON", "1e-4")
	t.Setenv("FIT_CACHE_SIZE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 8, cfg.CorrectionWorkers)
	assert.Equal(t, "weibull_min", cfg.DefaultFamily)
	assert.Equal(t, qdm.Additive, cfg.DefaultMode)
	assert.Equal(t, 1e-4, cfg.ClipEpsilon)
	assert.Equal(t, 0, cfg.FitCacheSize)
}

func TestLoad_ZeroWorkersUsesGOMAXPROCS(t *testing.T) {
	t.Setenv("CORRECTION_WORKERS", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.CorrectionWorkers)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidCorrectionSettings(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CORRECTION_WORKERS", "-1"},
		{"CORRECTION_WORKERS", "many"},
		{"FIT_CACHE_SIZE", "-5"},
		{"DEFAULT_FAMILY", "gumbel"},
		{"DEFAULT_MODE", "quantile"},
		{"CLIP_EPSILON", "0"},
		{"CLIP_EPSILON", "0.5"},
		{"CLIP_EPSILON", "tiny"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

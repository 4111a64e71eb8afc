package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Correction defaults, used when a request leaves them unset.
	CorrectionWorkers int
	DefaultFamily     string
	DefaultMode       qdm.Mode
	ClipEpsilon       float64
	FitCacheSize      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parseNonNegativeInt("CORRECTION_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cacheSize, err := parseNonNegativeInt("FIT_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	mode, err := qdm.ParseMode(sharedcfg.EnvOrDefault("DEFAULT_MODE", "ratio"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_MODE: %w", err)
	}

	clip, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("CLIP_EPSILON", "1e-6"), 64)
	if err != nil || !(clip > 0 && clip < 0.5) {
		return nil, errors.New("invalid CLIP_EPSILON: must be in (0, 0.5)")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "tc-correction-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "tc-corrected-intensity"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "tc-bias-correction"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		CorrectionWorkers: workers,
		DefaultFamily:     sharedcfg.EnvOrDefault("DEFAULT_FAMILY", distribution.NameLogNormal),
		DefaultMode:       mode,
		ClipEpsilon:       clip,
		FitCacheSize:      cacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if !distribution.IsKnown(cfg.DefaultFamily) {
		return nil, fmt.Errorf("invalid DEFAULT_FAMILY %q: want one of %v", cfg.DefaultFamily, distribution.Names())
	}

	return cfg, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/tc-bias-correction/internal/adapter/http"
	"github.com/couchcryptid/tc-bias-correction/internal/adapter/fitcache"
	kafkaadapter "github.com/couchcryptid/tc-bias-correction/internal/adapter/kafka"
	"github.com/couchcryptid/tc-bias-correction/internal/config"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Fit cache (disabled with FIT_CACHE_SIZE=0).
	var cache pipeline.FitCache
	if cfg.FitCacheSize > 0 {
		cache = fitcache.New(cfg.FitCacheSize, metrics.FitCache)
		logger.Info("fit cache enabled", "size", cfg.FitCacheSize)
	} else {
		logger.Info("fit cache disabled")
	}

	corrector := pipeline.NewCorrector(pipeline.Defaults{
		Family: cfg.DefaultFamily,
		Mode:   cfg.DefaultMode,
		Clip:   cfg.ClipEpsilon,
	}, cache, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, corrector, writer, logger, metrics, cfg.BatchSize, cfg.CorrectionWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, corrector, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("service started",
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"workers", cfg.CorrectionWorkers,
		"default_family", cfg.DefaultFamily,
		"default_mode", cfg.DefaultMode.String(),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

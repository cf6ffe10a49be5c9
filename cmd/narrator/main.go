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
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/forecast-narrative-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/forecast-narrative-service/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-narrative-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/forecast-narrative-service/internal/adapter/synthetic"
	"github.com/couchcryptid/forecast-narrative-service/internal/config"
	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/couchcryptid/forecast-narrative-service/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	phrases, err := domain.PhraseTableWithOverrides(cfg.PhrasesFile)
	if err != nil {
		logger.Error("failed to load phrases", "error", err, "path", cfg.PhrasesFile)
		os.Exit(1)
	}

	client := openmeteo.NewClient(cfg, metrics, logger)
	places := openmeteo.NewCachedPlaceSearcher(client, cfg.GeocodeCacheSize, metrics)

	var fallback domain.ForecastFetcher
	if cfg.SyntheticFallback {
		fallback = synthetic.NewGenerator(uint64(clock.Now().UnixNano()), cfg.Timezone, clock)
		logger.Info("synthetic forecast fallback enabled")
	}
	fetcher := pipeline.NewFallbackFetcher(client, fallback, metrics, logger)

	narrator := pipeline.NewNarrator(fetcher, places, pipeline.NarratorOptions{
		Phrases:         phrases,
		Location:        cfg.Timezone,
		DefaultLanguage: cfg.DefaultLanguage,
		Clock:           clock,
	}, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(narrator, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Ready:     p,
		Narrator:  narrator,
		Refresher: pipeline.NewRefresher(metrics),
		Clock:     clock,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("forecast narrator started",
		"timezone", cfg.Timezone.String(),
		"default_language", cfg.DefaultLanguage,
		"batch_flush_interval", cfg.BatchFlushInterval.String(),
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

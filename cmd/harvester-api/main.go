// Package main provides the harvester API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kostadindraganov/amazon-extractor/internal/cache"
	"github.com/kostadindraganov/amazon-extractor/internal/config"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/gemini"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
	"github.com/kostadindraganov/amazon-extractor/internal/sheet"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	session, cleanup, err := buildSession(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build session")
	}
	defer cleanup()

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Driver).
		Int("batch_size", cfg.Extraction.BatchSize).
		Msg("Starting harvester API")

	router := NewRouter(logger, cfg, session)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		_ = srv.Close()
	}
}

// buildSession wires the loader, Gemini client, and cache into one session.
func buildSession(cfg *config.Config, logger *observability.Logger) (*harvest.Session, func(), error) {
	loader := sheet.NewLoader(logger, sheet.LoaderConfig{
		ExportHost:   cfg.Sheet.ExportHost,
		FetchTimeout: cfg.Sheet.FetchTimeout,
	})

	client, err := gemini.NewClient(logger, gemini.Config{
		APIKey:    cfg.Gemini.APIKey,
		Model:     cfg.Gemini.Model,
		BaseURL:   cfg.Gemini.BaseURL,
		Timeout:   cfg.Extraction.RequestTimeout,
		MinImages: cfg.Extraction.MinImages,
		MaxImages: cfg.Extraction.MaxImages,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create gemini client (is GEMINI_API_KEY set?): %w", err)
	}

	var store cache.Client
	if cfg.Cache.Driver == "redis" {
		store, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis cache: %w", err)
		}
	} else {
		store = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	service := extract.NewCachedService(logger, client, store, cfg.Cache.TTL)

	session := harvest.NewSession(logger, loader, service, harvest.Config{
		BatchSize: cfg.Extraction.BatchSize,
	})

	cleanup := func() { _ = store.Close() }
	return session, cleanup, nil
}

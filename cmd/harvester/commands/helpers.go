package commands

import (
	"fmt"

	"github.com/kostadindraganov/amazon-extractor/internal/cache"
	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/config"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/gemini"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
	"github.com/kostadindraganov/amazon-extractor/internal/sheet"
)

// setup loads config, builds the logger, and wires a session over the real
// sheet loader and Gemini service.
func setup(onUpdate func(catalog.Product)) (*config.Config, *observability.Logger, *harvest.Session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

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
		return nil, nil, nil, fmt.Errorf("create gemini client (is GEMINI_API_KEY set?): %w", err)
	}

	service, err := buildService(cfg, logger, client)
	if err != nil {
		return nil, nil, nil, err
	}

	session := harvest.NewSession(logger, loader, service, harvest.Config{
		BatchSize: cfg.Extraction.BatchSize,
		OnUpdate:  onUpdate,
	})

	return cfg, logger, session, nil
}

// buildService wraps the client with the configured cache driver.
func buildService(cfg *config.Config, logger *observability.Logger, client extract.Service) (extract.Service, error) {
	var store cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		store = redisClient
	default:
		store = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	return extract.NewCachedService(logger, client, store, cfg.Cache.TTL), nil
}

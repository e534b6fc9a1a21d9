package extract

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kostadindraganov/amazon-extractor/internal/cache"
	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// Service performs one extraction call for a product URL.
type Service interface {
	Extract(ctx context.Context, url string) (*catalog.Extraction, error)
}

// CachedService wraps a Service with a TTL cache keyed by product URL, so
// reloading the same sheet within the TTL does not repeat upstream calls.
// Failures are never cached.
type CachedService struct {
	inner  Service
	cache  cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachedService creates a caching wrapper around svc.
func NewCachedService(logger *observability.Logger, svc Service, c cache.Client, ttl time.Duration) *CachedService {
	return &CachedService{
		inner:  svc,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Extract returns a cached result when present, calling through otherwise.
func (s *CachedService) Extract(ctx context.Context, url string) (*catalog.Extraction, error) {
	key := "extract:" + url

	if data, err := s.cache.Get(ctx, key); err == nil {
		var result catalog.Extraction
		if err := json.Unmarshal(data, &result); err == nil {
			s.logger.Debug().Str("url", url).Msg("Extraction cache hit")
			return &result, nil
		}
		// Corrupt entry, drop it and call through
		_ = s.cache.Delete(ctx, key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("url", url).Msg("Extraction cache read failed")
	}

	result, err := s.inner.Extract(ctx, url)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("url", url).Msg("Extraction cache write failed")
		}
	}

	return result, nil
}

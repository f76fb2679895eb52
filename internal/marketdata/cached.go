package marketdata

import (
	"context"

	"github.com/rs/zerolog"

	"bist-signal-engine/internal/cache"
)

// CachedProvider wraps a Provider with a Redis cache layer. Cache failures
// degrade to the underlying provider and are logged at debug level only.
type CachedProvider struct {
	inner  Provider
	cache  *cache.CacheService
	logger zerolog.Logger
}

// NewCachedProvider creates a caching wrapper around the given provider.
func NewCachedProvider(inner Provider, cs *cache.CacheService, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cs,
		logger: logger.With().Str("component", "marketdata_cache").Logger(),
	}
}

// PriceSnapshot returns the cached snapshot when fresh, otherwise fetches
// from the provider and stores the result.
func (p *CachedProvider) PriceSnapshot(ctx context.Context, symbols []string) (map[string]float64, error) {
	cached := map[string]float64{}
	if err := p.cache.GetJSON(ctx, cache.PrefixPriceSnapshot, &cached); err == nil {
		if hasAll(cached, symbols) {
			return cached, nil
		}
	}

	prices, err := p.inner.PriceSnapshot(ctx, symbols)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetJSON(ctx, cache.PrefixPriceSnapshot, prices, cache.DefaultPriceTTL); err != nil {
		p.logger.Debug().Err(err).Msg("price snapshot cache write failed")
	}
	return prices, nil
}

// IndexBars returns cached bar history when present, otherwise fetches
// from the provider and stores the result.
func (p *CachedProvider) IndexBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	key := cache.IndexBarsKey(symbol, limit)

	var cached []Bar
	if err := p.cache.GetJSON(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	bars, err := p.inner.IndexBars(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetJSON(ctx, key, bars, cache.DefaultBarsTTL); err != nil {
		p.logger.Debug().Err(err).Str("symbol", symbol).Msg("index bars cache write failed")
	}
	return bars, nil
}

func hasAll(prices map[string]float64, symbols []string) bool {
	if len(prices) == 0 {
		return false
	}
	for _, s := range symbols {
		if _, ok := prices[s]; !ok {
			return false
		}
	}
	return true
}

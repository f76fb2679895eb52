package marketdata

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryProvider wraps a Provider with exponential-backoff retries. Retry
// policy belongs at this boundary, never inside the core engines.
type RetryProvider struct {
	inner      Provider
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// WithRetry wraps p so transient provider failures are retried for up to
// maxElapsed per call.
func WithRetry(p Provider, maxElapsed time.Duration, logger zerolog.Logger) *RetryProvider {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &RetryProvider{inner: p, maxElapsed: maxElapsed, logger: logger}
}

func (r *RetryProvider) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = r.maxElapsed
	return backoff.WithContext(b, ctx)
}

func (r *RetryProvider) PriceSnapshot(ctx context.Context, symbols []string) (map[string]float64, error) {
	var snapshot map[string]float64
	op := func() error {
		var err error
		snapshot, err = r.inner.PriceSnapshot(ctx, symbols)
		if err != nil {
			r.logger.Warn().Err(err).Int("symbols", len(symbols)).Msg("price snapshot fetch failed, retrying")
		}
		return err
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *RetryProvider) IndexBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	var bars []Bar
	op := func() error {
		var err error
		bars, err = r.inner.IndexBars(ctx, symbol, limit)
		if err != nil {
			r.logger.Warn().Err(err).Str("symbol", symbol).Msg("index bars fetch failed, retrying")
		}
		return err
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return nil, err
	}
	return bars, nil
}

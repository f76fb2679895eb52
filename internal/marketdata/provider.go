// Package marketdata defines the boundary to external price providers.
// Fetch protocols, staleness handling and provider errors live behind the
// Provider interface; the core only consumes price snapshots and bar series.
package marketdata

import (
	"context"
	"time"
)

// Bar is one OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider supplies market data for BIST instruments. A symbol missing from
// a snapshot means "no price this round", not an error.
type Provider interface {
	// PriceSnapshot returns last prices for the requested symbols. Symbols
	// the provider cannot price are simply absent from the map.
	PriceSnapshot(ctx context.Context, symbols []string) (map[string]float64, error)

	// IndexBars returns up to limit daily bars for a broad index, oldest
	// first.
	IndexBars(ctx context.Context, symbol string, limit int) ([]Bar, error)
}

// StaticProvider serves fixed data. Used in tests and dry-run mode.
type StaticProvider struct {
	Prices map[string]float64
	Bars   map[string][]Bar
}

func (p *StaticProvider) PriceSnapshot(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if price, ok := p.Prices[s]; ok {
			out[s] = price
		}
	}
	return out, nil
}

func (p *StaticProvider) IndexBars(_ context.Context, symbol string, limit int) ([]Bar, error) {
	bars := p.Bars[symbol]
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

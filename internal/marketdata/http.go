package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPProvider fetches BIST prices and index bars from a JSON market data
// API. Credentials are optional; public endpoints work without them.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// HTTPConfig holds provider connection settings
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewHTTPProvider creates a provider for the given endpoint
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &HTTPProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger.With().Str("component", "marketdata").Logger(),
	}
}

type quoteResponse struct {
	Quotes []struct {
		Symbol string  `json:"symbol"`
		Last   float64 `json:"last"`
	} `json:"quotes"`
}

type barsResponse struct {
	Bars []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"bars"`
}

// PriceSnapshot fetches last prices for the requested symbols
func (p *HTTPProvider) PriceSnapshot(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/v1/quotes?symbols=%s",
		p.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	var resp quoteResponse
	if err := p.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("quote fetch failed: %w", err)
	}

	prices := make(map[string]float64, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Last > 0 {
			prices[strings.ToUpper(q.Symbol)] = q.Last
		}
	}
	return prices, nil
}

// IndexBars fetches up to limit daily bars for an index, oldest first
func (p *HTTPProvider) IndexBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	endpoint := fmt.Sprintf("%s/v1/bars?symbol=%s&interval=1d&limit=%s",
		p.baseURL, url.QueryEscape(symbol), strconv.Itoa(limit))

	var resp barsResponse
	if err := p.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("bars fetch failed for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			p.logger.Debug().
				Str("symbol", symbol).
				Str("date", b.Date).
				Msg("skipping bar with unparseable date")
			continue
		}
		bars = append(bars, Bar{
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}

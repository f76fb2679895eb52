package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bist-signal-engine/internal/backtest"
	"bist-signal-engine/internal/events"
	"bist-signal-engine/internal/marketdata"
)

func newTestServer(t *testing.T, provider marketdata.Provider) *Server {
	t.Helper()

	store, err := backtest.NewFileStore(filepath.Join(t.TempDir(), "trades.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	engine, err := backtest.NewEngine(context.Background(), backtest.DefaultConfig(), store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	cfg := ServerConfig{
		Port:           8080,
		Host:           "127.0.0.1",
		ProductionMode: true,
	}
	return NewServer(cfg, engine, provider, events.NewEventBus(), nil, nil, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %s: %v", w.Body.String(), err)
	}
	if !resp.Success {
		t.Fatalf("success=false in %s", w.Body.String())
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
	return data
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestRecordUpdatePerformanceFlow(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/backtest/signals", map[string]interface{}{
		"symbol": "thyao",
		"signal": "AL",
		"score":  80,
		"price":  100.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("record status = %d: %s", w.Code, w.Body.String())
	}
	trade := decodeData(t, w)
	if trade["symbol"] != "THYAO" {
		t.Errorf("symbol = %v, want THYAO (uppercased)", trade["symbol"])
	}
	if trade["status"] != backtest.StatusActive {
		t.Errorf("status = %v, want %s", trade["status"], backtest.StatusActive)
	}

	w = doJSON(t, s, http.MethodGet, "/api/backtest/active", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("active status = %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/backtest/update", map[string]interface{}{
		"prices": map[string]float64{"THYAO": 111},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	update := decodeData(t, w)
	closed, ok := update["closed"].([]interface{})
	if !ok || len(closed) != 1 {
		t.Fatalf("closed = %v, want 1 trade", update["closed"])
	}
	first := closed[0].(map[string]interface{})
	if first["exit_reason"] != backtest.ExitTakeProfit {
		t.Errorf("exit reason = %v, want %s", first["exit_reason"], backtest.ExitTakeProfit)
	}

	w = doJSON(t, s, http.MethodGet, "/api/backtest/performance", nil)
	perf := decodeData(t, w)
	if perf["completed_signals"].(float64) != 1 {
		t.Errorf("completed = %v, want 1", perf["completed_signals"])
	}
	if perf["win_rate"].(float64) != 100 {
		t.Errorf("win rate = %v, want 100", perf["win_rate"])
	}

	w = doJSON(t, s, http.MethodGet, "/api/backtest/results?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results status = %d", w.Code)
	}
}

func TestRecordSignalRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	cases := []map[string]interface{}{
		{"signal": "AL", "score": 70, "price": 100.0},    // missing symbol
		{"symbol": "THYAO", "score": 70, "price": 100.0}, // missing signal
		{"symbol": "THYAO", "signal": "AL", "score": 70}, // missing price
	}
	for i, body := range cases {
		if w := doJSON(t, s, http.MethodPost, "/api/backtest/signals", body); w.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, w.Code)
		}
	}
}

func TestUpdateSignalsNoActiveTrades(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/backtest/update", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["checked"].(float64) != 0 {
		t.Errorf("checked = %v, want 0", data["checked"])
	}
}

func TestUpdateSignalsFetchesProviderSnapshot(t *testing.T) {
	provider := &marketdata.StaticProvider{
		Prices: map[string]float64{"THYAO": 92},
	}
	s := newTestServer(t, provider)

	w := doJSON(t, s, http.MethodPost, "/api/backtest/signals", map[string]interface{}{
		"symbol": "THYAO", "signal": "AL", "score": 70, "price": 100.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("record status = %d", w.Code)
	}

	// empty body: prices come from the provider for the active symbols
	w = doJSON(t, s, http.MethodPost, "/api/backtest/update", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	closed := data["closed"].([]interface{})
	if len(closed) != 1 {
		t.Fatalf("closed = %v, want 1 stop-loss exit", data["closed"])
	}
	if reason := closed[0].(map[string]interface{})["exit_reason"]; reason != backtest.ExitStopLoss {
		t.Errorf("exit reason = %v, want %s", reason, backtest.ExitStopLoss)
	}
}

func TestResultsLimitValidation(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	for _, limit := range []string{"0", "-3", "501", "abc"} {
		w := doJSON(t, s, http.MethodGet, "/api/backtest/results?limit="+limit, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestCombineEndpoint(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/analysis/combine", map[string]interface{}{
		"regime": "trending",
		"signals": []map[string]interface{}{
			{"name": "rsi", "signal": "BUY", "strength": 70, "confidence": 0.7},
			{"name": "macd", "signal": "STRONG_BUY", "strength": 80, "confidence": 0.8},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["score"].(float64) <= 50 {
		t.Errorf("score = %v, want > 50 for aligned bullish signals", data["score"])
	}
}

func TestCombineRejectsUnknownIndicator(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/analysis/combine", map[string]interface{}{
		"signals": []map[string]interface{}{
			{"name": "astrology", "signal": "BUY", "strength": 70, "confidence": 0.7},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	rsi := 15.0
	w := doJSON(t, s, http.MethodPost, "/api/analysis", map[string]interface{}{
		"symbol":   "garan",
		"regime":   "ranging",
		"readings": map[string]interface{}{"rsi": rsi},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["symbol"] != "GARAN" {
		t.Errorf("symbol = %v, want GARAN", data["symbol"])
	}
	if data["score"].(float64) <= 50 {
		t.Errorf("score = %v, want > 50 for deeply oversold RSI", data["score"])
	}
}

func TestAnalysisRecordsStrongVerdict(t *testing.T) {
	provider := &marketdata.StaticProvider{
		Prices: map[string]float64{"GARAN": 42.5},
	}
	s := newTestServer(t, provider)

	w := doJSON(t, s, http.MethodPost, "/api/analysis", map[string]interface{}{
		"symbol":   "GARAN",
		"regime":   "ranging",
		"readings": map[string]interface{}{"rsi": 10.0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	recorded, ok := data["recorded_trade"].(map[string]interface{})
	if !ok {
		t.Fatalf("recorded_trade missing in %v", data)
	}
	if recorded["symbol"] != "GARAN" || recorded["entry_price"].(float64) != 42.5 {
		t.Errorf("recorded trade = %v", recorded)
	}

	w = doJSON(t, s, http.MethodGet, "/api/backtest/active", nil)
	var resp struct {
		Data []backtest.Trade `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode active: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Symbol != "GARAN" {
		t.Errorf("active trades = %+v, want one GARAN trade", resp.Data)
	}
}

func TestAnalysisWithoutPriceDoesNotRecord(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/analysis", map[string]interface{}{
		"symbol":   "GARAN",
		"regime":   "ranging",
		"readings": map[string]interface{}{"rsi": 10.0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if _, ok := data["recorded_trade"]; ok {
		t.Error("verdict recorded without a current price")
	}
}

func TestGetAnalysisMissesWithoutCache(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodGet, "/api/analysis/GARAN", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no verdict is cached: %s", w.Code, w.Body.String())
	}
}

func TestAnalysisRejectsEmptyReadings(t *testing.T) {
	s := newTestServer(t, &marketdata.StaticProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/analysis", map[string]interface{}{
		"symbol": "GARAN",
		"regime": "ranging",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestMarketConditionEndpoint(t *testing.T) {
	bars := make([]marketdata.Bar, 60)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = marketdata.Bar{
			Date: start.AddDate(0, 0, i), Open: c, High: c + 0.2, Low: c - 0.2, Close: c,
		}
	}
	provider := &marketdata.StaticProvider{Bars: map[string][]marketdata.Bar{"XU100": bars}}
	s := newTestServer(t, provider)

	w := doJSON(t, s, http.MethodGet, "/api/market/condition", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["condition"] != "bull" {
		t.Errorf("condition = %v, want bull", data["condition"])
	}
	if data["regime"] != "trending" {
		t.Errorf("regime = %v, want trending", data["regime"])
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("/api/analysis") {
			t.Fatalf("request %d denied under the limit", i)
		}
	}
	if rl.Allow("/api/analysis") {
		t.Error("request over the limit allowed")
	}
	if !rl.Allow("/api/other") {
		t.Error("independent endpoint should not share the budget")
	}
}

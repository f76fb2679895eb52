package signal

import (
	"strings"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidateRejectsUnknownIndicator(t *testing.T) {
	g := NewGenerator()

	err := g.Validate([]IndicatorSignal{
		{Name: "rsi", Direction: Buy, Strength: 50, Confidence: 0.5},
		{Name: "astrology", Direction: Buy, Strength: 50, Confidence: 0.5},
	})
	if err == nil {
		t.Fatal("expected validation error for unknown indicator")
	}
	if !strings.Contains(err.Error(), "astrology") {
		t.Errorf("error %q should name the rejected indicator", err)
	}
}

func TestValidateNormalizesNames(t *testing.T) {
	g := NewGenerator()

	// Capitalization and spaces normalize to canonical keys
	err := g.Validate([]IndicatorSignal{
		{Name: "RSI", Direction: Buy, Strength: 50, Confidence: 0.5},
		{Name: "MA Cross", Direction: Sell, Strength: 50, Confidence: 0.5},
	})
	if err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestValidateRangeChecks(t *testing.T) {
	g := NewGenerator()

	cases := []struct {
		name string
		sig  IndicatorSignal
	}{
		{"strength over 100", IndicatorSignal{Name: "rsi", Strength: 101, Confidence: 0.5}},
		{"negative strength", IndicatorSignal{Name: "rsi", Strength: -1, Confidence: 0.5}},
		{"confidence over 1", IndicatorSignal{Name: "rsi", Strength: 50, Confidence: 1.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := g.Validate([]IndicatorSignal{tc.sig}); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGenerateSkipsMissingReadings(t *testing.T) {
	g := NewGenerator()

	signals := g.Generate(Readings{RSI: floatPtr(25)}, RegimeDefault)
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}
	if signals[0].Name != IndicatorRSI {
		t.Errorf("name = %s, want rsi", signals[0].Name)
	}
}

func TestGenerateRSIDirections(t *testing.T) {
	cases := []struct {
		rsi  float64
		want Direction
	}{
		{15, StrongBuy},
		{25, Buy},
		{50, Neutral},
		{72, Sell},
		{85, StrongSell},
	}

	g := NewGenerator()
	for _, tc := range cases {
		signals := g.Generate(Readings{RSI: floatPtr(tc.rsi)}, RegimeDefault)
		if got := signals[0].Direction; got != tc.want {
			t.Errorf("rsi %.0f: direction = %s, want %s", tc.rsi, got, tc.want)
		}
	}
}

func TestGenerateBollingerMeanReversion(t *testing.T) {
	g := NewGenerator()

	lower := g.Generate(Readings{Bollinger: floatPtr(0.02)}, RegimeDefault)[0]
	upper := g.Generate(Readings{Bollinger: floatPtr(0.98)}, RegimeDefault)[0]

	if !lower.Direction.IsBullish() {
		t.Errorf("lower band position should vote buy, got %s", lower.Direction)
	}
	if !upper.Direction.IsBearish() {
		t.Errorf("upper band position should vote sell, got %s", upper.Direction)
	}
}

func TestGenerateATRIsNeutral(t *testing.T) {
	g := NewGenerator()

	sig := g.Generate(Readings{ATR: &ATRReading{Value: 12, Percent: 3.2}}, RegimeVolatile)[0]
	if sig.Direction != Neutral {
		t.Errorf("atr direction = %s, want NEUTRAL (non-directional)", sig.Direction)
	}
	if sig.Strength <= 0 {
		t.Errorf("atr strength = %.2f, want > 0 for elevated volatility", sig.Strength)
	}
}

func TestGeneratePatternsNetVote(t *testing.T) {
	g := NewGenerator()

	signals := g.Generate(Readings{Patterns: []CandlePattern{
		{Name: "hammer", Direction: "bullish", Reliability: 0.8},
		{Name: "doji", Direction: "bearish", Reliability: 0.3},
	}}, RegimeDefault)

	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1 netted candlestick vote", len(signals))
	}
	if signals[0].Direction != Buy {
		t.Errorf("direction = %s, want BUY (bullish weight dominates)", signals[0].Direction)
	}
}

func TestGenerateFullReadings(t *testing.T) {
	g := NewGenerator()

	r := Readings{
		RSI:        floatPtr(28),
		MACD:       &MACDReading{MACD: 1.2, Signal: 0.8, Histogram: 0.4},
		Ichimoku:   &IchimokuReading{Summary: "bull", PriceVsCloud: 2.1, TenkanVsKijun: 0.5},
		Bollinger:  floatPtr(0.1),
		Stochastic: &StochasticReading{K: 15, D: 12},
		ADX:        &ADXReading{ADX: 30, PlusDI: 25, MinusDI: 12},
		ATR:        &ATRReading{Value: 5, Percent: 1.8},
		SuperTrend: &SuperTrendReading{Direction: "up", DistancePct: 1.5},
		MACross:    &MACrossReading{State: "golden", GapPct: 2.0},
		Patterns:   []CandlePattern{{Name: "engulfing", Direction: "bullish", Reliability: 0.7}},
		Divergence: &DivergenceReading{Type: "bullish", Strength: 60},
	}

	signals := g.Generate(r, RegimeTrending)
	if len(signals) != 11 {
		t.Fatalf("got %d signals, want 11", len(signals))
	}

	if err := g.Validate(signals); err != nil {
		t.Errorf("generated signals failed validation: %v", err)
	}

	for _, s := range signals {
		if s.Confidence < 0.1 || s.Confidence > 1.0 {
			t.Errorf("%s: confidence %.3f outside [0.1, 1.0]", s.Name, s.Confidence)
		}
		if s.Weight <= 0 {
			t.Errorf("%s: weight %.3f, want > 0", s.Name, s.Weight)
		}
	}

	// Uniformly bullish readings must combine into a bullish verdict
	v := NewCombiner().Combine(signals, RegimeTrending)
	if v.Score <= 50 {
		t.Errorf("score = %.2f, want > 50 for uniformly bullish readings", v.Score)
	}
}

package signal

import (
	"math"
	"testing"
)

func TestCombineEmptySignals(t *testing.T) {
	v := NewCombiner().Combine(nil, RegimeDefault)

	if v.Signal != Neutral {
		t.Errorf("signal = %s, want %s", v.Signal, Neutral)
	}
	if v.Score != 50 {
		t.Errorf("score = %.2f, want 50", v.Score)
	}
	if v.Confidence != 0 {
		t.Errorf("confidence = %.2f, want 0", v.Confidence)
	}
	if v.Strength != "weak" {
		t.Errorf("strength = %q, want weak", v.Strength)
	}
	if v.Error != "no_signals" {
		t.Errorf("error = %q, want no_signals", v.Error)
	}
}

func TestCombineSingleSignal(t *testing.T) {
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: StrongBuy, Strength: 100, Confidence: 1.0},
	}

	v := NewCombiner().Combine(signals, RegimeDefault)

	if v.Agreement != 1.0 {
		t.Errorf("agreement = %.2f, want 1.0 for a single signal", v.Agreement)
	}
	if v.Score != 100 {
		t.Errorf("score = %.2f, want 100", v.Score)
	}
	if v.Confidence != 100 {
		t.Errorf("confidence = %.2f, want 100", v.Confidence)
	}
	if v.Signal != StrongBuy {
		t.Errorf("signal = %s, want %s", v.Signal, StrongBuy)
	}
	if v.Strength != "very_strong" {
		t.Errorf("strength = %q, want very_strong", v.Strength)
	}
}

func TestCombineBullishMajorityOutweighsDissent(t *testing.T) {
	// Two confident buys against one unsure sell: the verdict must land in
	// the Buy family, not wash out to neutral.
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: Buy, Strength: 70, Confidence: 0.8},
		{Name: IndicatorMACD, Direction: Sell, Strength: 60, Confidence: 0.6},
		{Name: IndicatorIchimoku, Direction: Buy, Strength: 80, Confidence: 0.9},
	}

	v := NewCombiner().Combine(signals, RegimeDefault)

	// weighted mean of the direction values under effective weights:
	// (70*.0672 + 30*.0432 + 70*.0864) / .1968
	if math.Abs(v.Score-61.2195) > 0.01 {
		t.Errorf("score = %.4f, want 61.22", v.Score)
	}
	if !v.Signal.IsBullish() {
		t.Errorf("signal = %s, want a Buy-family verdict", v.Signal)
	}
	if v.BullishCount != 2 || v.BearishCount != 1 || v.NeutralCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/1/0",
			v.BullishCount, v.BearishCount, v.NeutralCount)
	}
	if v.Confidence <= 0 {
		t.Errorf("confidence = %.2f, want > 0", v.Confidence)
	}
	if len(v.Breakdown) != 3 {
		t.Fatalf("breakdown has %d entries, want 3", len(v.Breakdown))
	}
	for _, c := range v.Breakdown {
		if c.Weight <= 0 {
			t.Errorf("%s: weight = %.3f, want > 0", c.Name, c.Weight)
		}
		if c.Effective <= 0 {
			t.Errorf("%s: effective weight = %.4f, want > 0", c.Name, c.Effective)
		}
	}
}

func TestCombineZeroEffectiveWeightIsNeutral(t *testing.T) {
	// Every vote weightless: zero strength or zero confidence
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: StrongBuy, Strength: 0, Confidence: 1.0},
		{Name: IndicatorMACD, Direction: StrongSell, Strength: 100, Confidence: 0},
	}

	v := NewCombiner().Combine(signals, RegimeDefault)

	if v.Score != 50 {
		t.Errorf("score = %.2f, want 50 when no vote carries weight", v.Score)
	}
}

func TestCombineFullConflictCollapsesToNeutral(t *testing.T) {
	// RSI and MACD carry equal default weights, so a max-strength,
	// max-confidence head-on conflict lands exactly at 50 with zero
	// agreement.
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: StrongBuy, Strength: 100, Confidence: 1.0},
		{Name: IndicatorMACD, Direction: StrongSell, Strength: 100, Confidence: 1.0},
	}

	v := NewCombiner().Combine(signals, RegimeDefault)

	if math.Abs(v.Score-50) > 1e-9 {
		t.Errorf("score = %.4f, want 50", v.Score)
	}
	if v.Agreement != 0 {
		t.Errorf("agreement = %.4f, want 0", v.Agreement)
	}
	if v.Confidence != 0 {
		t.Errorf("confidence = %.4f, want 0", v.Confidence)
	}
	if v.Signal != Neutral {
		t.Errorf("signal = %s, want %s", v.Signal, Neutral)
	}
}

func TestCombineConfidenceMonotonicity(t *testing.T) {
	build := func(conf float64) []IndicatorSignal {
		return []IndicatorSignal{
			{Name: IndicatorRSI, Direction: Buy, Strength: 70, Confidence: conf},
			{Name: IndicatorMACD, Direction: Neutral, Strength: 50, Confidence: 0.5},
		}
	}

	c := NewCombiner()
	low := c.Combine(build(0.3), RegimeDefault)
	high := c.Combine(build(0.9), RegimeDefault)

	if high.Score <= low.Score {
		t.Errorf("score did not rise with confidence: %.2f -> %.2f", low.Score, high.Score)
	}
}

func TestCombineLowConfidenceNeverStrong(t *testing.T) {
	// Weak confidence across the board must collapse to the 3-way scale
	// even when every direction is STRONG_BUY.
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: StrongBuy, Strength: 100, Confidence: 0.3},
		{Name: IndicatorMACD, Direction: StrongBuy, Strength: 100, Confidence: 0.3},
	}

	v := NewCombiner().Combine(signals, RegimeDefault)

	if v.Signal == StrongBuy || v.Signal == StrongSell {
		t.Errorf("signal = %s, low-confidence verdict must not be strong", v.Signal)
	}
}

func TestCombineRegimeWeightSelection(t *testing.T) {
	// Ichimoku dominates under trending, RSI under ranging. The same
	// conflicting pair must flip the verdict with the regime.
	signals := []IndicatorSignal{
		{Name: IndicatorIchimoku, Direction: StrongBuy, Strength: 100, Confidence: 1.0},
		{Name: IndicatorRSI, Direction: StrongSell, Strength: 100, Confidence: 1.0},
	}

	c := NewCombiner()
	trending := c.Combine(signals, RegimeTrending)
	ranging := c.Combine(signals, RegimeRanging)

	if trending.Score <= 50 {
		t.Errorf("trending score = %.2f, want > 50 (ichimoku outweighs rsi)", trending.Score)
	}
	if ranging.Score >= 50 {
		t.Errorf("ranging score = %.2f, want < 50 (rsi outweighs ichimoku)", ranging.Score)
	}
}

func TestCombineUnknownRegimeFallsBack(t *testing.T) {
	signals := []IndicatorSignal{
		{Name: IndicatorRSI, Direction: Buy, Strength: 70, Confidence: 0.8},
	}

	v := NewCombiner().Combine(signals, Regime("sideways_chop"))

	if v.Regime != RegimeDefault {
		t.Errorf("regime = %s, want %s", v.Regime, RegimeDefault)
	}
}

func TestCombineScoreBounds(t *testing.T) {
	cases := []struct {
		name    string
		signals []IndicatorSignal
	}{
		{"all strong buy", []IndicatorSignal{
			{Name: IndicatorRSI, Direction: StrongBuy, Strength: 100, Confidence: 1},
			{Name: IndicatorMACD, Direction: StrongBuy, Strength: 100, Confidence: 1},
			{Name: IndicatorIchimoku, Direction: StrongBuy, Strength: 100, Confidence: 1},
		}},
		{"all strong sell", []IndicatorSignal{
			{Name: IndicatorRSI, Direction: StrongSell, Strength: 100, Confidence: 1},
			{Name: IndicatorMACD, Direction: StrongSell, Strength: 100, Confidence: 1},
		}},
		{"out of range inputs", []IndicatorSignal{
			{Name: IndicatorRSI, Direction: StrongBuy, Strength: 500, Confidence: 7},
			{Name: IndicatorMACD, Direction: StrongSell, Strength: -10, Confidence: -1},
		}},
	}

	c := NewCombiner()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := c.Combine(tc.signals, RegimeDefault)
			if v.Score < 0 || v.Score > 100 {
				t.Errorf("score = %.2f, out of [0,100]", v.Score)
			}
			if v.Confidence < 0 || v.Confidence > 100 {
				t.Errorf("confidence = %.2f, out of [0,100]", v.Confidence)
			}
			if v.Agreement < 0 || v.Agreement > 1 {
				t.Errorf("agreement = %.2f, out of [0,1]", v.Agreement)
			}
		})
	}
}

func TestStrengthBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{95, "very_strong"},
		{80, "very_strong"},
		{10, "very_strong"},
		{70, "strong"},
		{30, "strong"},
		{58, "moderate"},
		{44, "moderate"},
		{50, "weak"},
		{48, "weak"},
	}

	for _, tc := range cases {
		if got := strengthBand(tc.score); got != tc.want {
			t.Errorf("strengthBand(%.0f) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

package regime

import (
	"strings"
	"testing"
	"time"

	"bist-signal-engine/internal/marketdata"
	"bist-signal-engine/internal/signal"
)

// synthBars builds n daily bars where close(i) comes from fn and the
// high/low sit spread above/below the close.
func synthBars(n int, spread float64, fn func(i int) float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := fn(i)
		bars[i] = marketdata.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + spread,
			Low:    c - spread,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestClassifyInsufficientHistory(t *testing.T) {
	a := NewAnalyzer()
	cond := a.Classify(synthBars(30, 0.2, func(i int) float64 { return 100 }))

	if cond.Condition != ConditionNeutral {
		t.Errorf("condition = %s, want %s", cond.Condition, ConditionNeutral)
	}
	if cond.Strength != 50 {
		t.Errorf("strength = %.1f, want 50", cond.Strength)
	}
	if cond.Regime != signal.RegimeDefault {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeDefault)
	}
	if !strings.Contains(cond.Description, "insufficient") {
		t.Errorf("description %q should mention insufficient history", cond.Description)
	}
}

func TestClassifyUptrend(t *testing.T) {
	a := NewAnalyzer()
	bars := synthBars(60, 0.2, func(i int) float64 { return 100 + float64(i)*0.5 })

	cond := a.Classify(bars)
	if cond.Condition != ConditionBull {
		t.Fatalf("condition = %s, want %s", cond.Condition, ConditionBull)
	}
	if cond.Strength <= 60 || cond.Strength > 80 {
		t.Errorf("strength = %.1f, want in (60, 80]", cond.Strength)
	}
	if cond.Momentum10d <= 2 {
		t.Errorf("momentum = %.2f, want > 2", cond.Momentum10d)
	}
	if cond.Regime != signal.RegimeTrending {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeTrending)
	}
}

func TestClassifyDowntrend(t *testing.T) {
	a := NewAnalyzer()
	bars := synthBars(60, 0.2, func(i int) float64 { return 130 - float64(i)*0.5 })

	cond := a.Classify(bars)
	if cond.Condition != ConditionBear {
		t.Fatalf("condition = %s, want %s", cond.Condition, ConditionBear)
	}
	if cond.Strength >= 40 || cond.Strength < 20 {
		t.Errorf("strength = %.1f, want in [20, 40)", cond.Strength)
	}
	if cond.Regime != signal.RegimeTrending {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeTrending)
	}
}

func TestClassifyStrengthCaps(t *testing.T) {
	a := NewAnalyzer()

	// explosive move: momentum far beyond the cap band
	up := synthBars(60, 0.2, func(i int) float64 { return 100 * (1 + float64(i)*0.02) })
	if cond := a.Classify(up); cond.Strength > 80 {
		t.Errorf("bull strength = %.1f, want capped at 80", cond.Strength)
	}

	down := synthBars(60, 0.2, func(i int) float64 { return 200 - float64(i)*2.2 })
	if cond := a.Classify(down); cond.Strength < 20 {
		t.Errorf("bear strength = %.1f, want floored at 20", cond.Strength)
	}
}

func TestClassifyFlatIsNeutralRanging(t *testing.T) {
	a := NewAnalyzer()
	bars := synthBars(60, 0.5, func(i int) float64 { return 100 })

	cond := a.Classify(bars)
	if cond.Condition != ConditionNeutral {
		t.Fatalf("condition = %s, want %s", cond.Condition, ConditionNeutral)
	}
	if cond.Strength != 50 {
		t.Errorf("strength = %.1f, want 50", cond.Strength)
	}
	if cond.Regime != signal.RegimeRanging {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeRanging)
	}
}

func TestClassifyMildUptrendIsRanging(t *testing.T) {
	a := NewAnalyzer()
	// flat series with the last close nudged above SMA20 but momentum ~0
	bars := synthBars(60, 0.3, func(i int) float64 {
		if i == 59 {
			return 100.4
		}
		return 100
	})

	cond := a.Classify(bars)
	if cond.Condition != ConditionBull {
		t.Fatalf("condition = %s, want %s", cond.Condition, ConditionBull)
	}
	if cond.Strength != 60 {
		t.Errorf("strength = %.1f, want 60", cond.Strength)
	}
	if cond.Regime != signal.RegimeRanging {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeRanging)
	}
}

func TestClassifyHighATRIsVolatile(t *testing.T) {
	a := NewAnalyzer()
	// flat direction but 3% daily ranges
	bars := synthBars(60, 3.0, func(i int) float64 { return 100 })

	cond := a.Classify(bars)
	if cond.Regime != signal.RegimeVolatile {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeVolatile)
	}
}

func TestClassifyVolatileOverridesTrend(t *testing.T) {
	a := NewAnalyzer()
	// strong uptrend with wide daily ranges: volatile tag wins
	bars := synthBars(60, 5.0, func(i int) float64 { return 100 + float64(i)*0.5 })

	cond := a.Classify(bars)
	if cond.Condition != ConditionBull {
		t.Fatalf("condition = %s, want %s", cond.Condition, ConditionBull)
	}
	if cond.Regime != signal.RegimeVolatile {
		t.Errorf("regime = %s, want %s", cond.Regime, signal.RegimeVolatile)
	}
}

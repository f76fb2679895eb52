// Package regime classifies a broad-index OHLC series into a market
// condition and the weight-table regime tag derived from it.
package regime

import (
	"fmt"

	"bist-signal-engine/internal/marketdata"
	"bist-signal-engine/internal/signal"
)

// Market conditions
const (
	ConditionBull    = "bull"
	ConditionBear    = "bear"
	ConditionNeutral = "neutral"
)

const minBars = 50

// atrVolatileThreshold is the 14-bar average true range, as a percent of
// the last close, above which the market counts as volatile.
const atrVolatileThreshold = 2.5

// Condition is the classification result
type Condition struct {
	Condition   string        `json:"condition"`
	Strength    float64       `json:"strength"` // 0-100, 50 = neutral
	Description string        `json:"description"`
	Momentum10d float64       `json:"momentum_10d"` // 10-bar momentum %
	Regime      signal.Regime `json:"regime"`
}

// Analyzer classifies index bars. Pure and deterministic.
type Analyzer struct{}

// NewAnalyzer creates an analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Classify inspects the series and returns the market condition. Fewer than
// 50 bars is a defined neutral fallback, never an error.
func (a *Analyzer) Classify(bars []marketdata.Bar) Condition {
	if len(bars) < minBars {
		return Condition{
			Condition:   ConditionNeutral,
			Strength:    50,
			Description: fmt.Sprintf("insufficient history: %d bars, need %d", len(bars), minBars),
			Regime:      signal.RegimeDefault,
		}
	}

	price := bars[len(bars)-1].Close
	sma20 := smaClose(bars, 20)
	sma50 := smaClose(bars, 50)
	momentum := momentum10(bars)

	cond := Condition{Momentum10d: momentum}

	switch {
	case price > sma20 && sma20 > sma50 && momentum > 2:
		cond.Condition = ConditionBull
		cond.Strength = capF(60+momentum*2, 80)
		cond.Description = fmt.Sprintf("uptrend: price above SMA20 above SMA50, momentum %.1f%%", momentum)
	case price < sma20 && sma20 < sma50 && momentum < -2:
		cond.Condition = ConditionBear
		cond.Strength = floorF(40+momentum*2, 20)
		cond.Description = fmt.Sprintf("downtrend: price below SMA20 below SMA50, momentum %.1f%%", momentum)
	case price > sma20:
		cond.Condition = ConditionBull
		cond.Strength = 60
		cond.Description = "mild uptrend: price above SMA20"
	case price < sma20:
		cond.Condition = ConditionBear
		cond.Strength = 40
		cond.Description = "mild downtrend: price below SMA20"
	default:
		cond.Condition = ConditionNeutral
		cond.Strength = 50
		cond.Description = "no directional bias"
	}

	cond.Regime = a.regimeTag(bars, cond)
	return cond
}

// regimeTag derives the weight-table tag: elevated ATR wins over direction,
// a decisive trend maps to trending, everything else ranges.
func (a *Analyzer) regimeTag(bars []marketdata.Bar, cond Condition) signal.Regime {
	if atrPercent(bars, 14) >= atrVolatileThreshold {
		return signal.RegimeVolatile
	}
	if cond.Strength >= 65 || cond.Strength <= 35 {
		return signal.RegimeTrending
	}
	return signal.RegimeRanging
}

func smaClose(bars []marketdata.Bar, period int) float64 {
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period)
}

func momentum10(bars []marketdata.Bar) float64 {
	last := bars[len(bars)-1].Close
	base := bars[len(bars)-10].Close
	if base == 0 {
		return 0
	}
	return (last - base) / base * 100
}

// atrPercent computes the average true range over period bars as a percent
// of the last close.
func atrPercent(bars []marketdata.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		if hc := abs(bars[i].High - bars[i-1].Close); hc > tr {
			tr = hc
		}
		if lc := abs(bars[i].Low - bars[i-1].Close); lc > tr {
			tr = lc
		}
		sum += tr
	}
	last := bars[len(bars)-1].Close
	if last == 0 {
		return 0
	}
	return sum / float64(period) / last * 100
}

func capF(v, hi float64) float64 {
	if v > hi {
		return hi
	}
	return v
}

func floorF(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

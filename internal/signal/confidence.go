package signal

// Indicator category sets for the regime-fit multiplier
var trendIndicators = map[Indicator]bool{
	IndicatorIchimoku:   true,
	IndicatorSuperTrend: true,
	IndicatorMACross:    true,
	IndicatorADX:        true,
	IndicatorMACD:       true,
}

var oscillatorIndicators = map[Indicator]bool{
	IndicatorRSI:        true,
	IndicatorStochastic: true,
	IndicatorBollinger:  true,
	IndicatorDivergence: true,
}

// ConfidenceCalculator derives a per-indicator confidence score from the
// indicator's raw reading, the active market regime, and optional
// historical accuracy. Pure and deterministic.
type ConfidenceCalculator struct {
	// DefaultAccuracy substitutes for indicators without a tracked
	// historical accuracy.
	DefaultAccuracy float64
}

// NewConfidenceCalculator returns a calculator with the standard 0.6
// accuracy substitute.
func NewConfidenceCalculator() *ConfidenceCalculator {
	return &ConfidenceCalculator{DefaultAccuracy: 0.6}
}

// Score computes confidence in [0.1, 1.0].
//
//	final = clamp((base + bonus) * regimeFactor * accuracy * dataQuality, 0.1, 1.0)
//
// historicalAccuracy may be nil; dataQuality defaults to 1.0 when <= 0.
func (cc *ConfidenceCalculator) Score(
	name Indicator,
	currentValue float64,
	historicalAccuracy *float64,
	regime Regime,
	dataQuality float64,
) float64 {
	base := 0.5
	bonus := cc.extremeBonus(NormalizeIndicator(string(name)), currentValue)
	factor := cc.regimeFactor(NormalizeIndicator(string(name)), ParseRegime(string(regime)))

	accuracy := cc.DefaultAccuracy
	if historicalAccuracy != nil {
		accuracy = *historicalAccuracy
	}
	if dataQuality <= 0 {
		dataQuality = 1.0
	}

	return clamp((base+bonus)*factor*accuracy*dataQuality, 0.1, 1.0)
}

// extremeBonus rewards readings in indicator-specific extreme zones. ADX
// readings below 20 are penalized: a weak trend makes trend signals less
// trustworthy, not more.
func (cc *ConfidenceCalculator) extremeBonus(name Indicator, value float64) float64 {
	switch name {
	case IndicatorRSI:
		switch {
		case value <= 20 || value >= 80:
			return 0.3
		case value <= 30 || value >= 70:
			return 0.2
		}
	case IndicatorStochastic:
		switch {
		case value <= 10 || value >= 90:
			return 0.3
		case value <= 20 || value >= 80:
			return 0.2
		}
	case IndicatorBollinger:
		// value is the band position in [0,1]
		switch {
		case value <= 0.05 || value >= 0.95:
			return 0.25
		case value <= 0.15 || value >= 0.85:
			return 0.15
		}
	case IndicatorADX:
		switch {
		case value >= 40:
			return 0.25
		case value >= 25:
			return 0.1
		case value < 20:
			return -0.1
		}
	case IndicatorATR:
		// value is ATR as a percent of price; elevated volatility makes
		// the reading more informative up to a point
		if value >= 3.0 {
			return 0.15
		}
	}
	return 0
}

// regimeFactor scales confidence by how well the indicator family fits the
// active regime.
func (cc *ConfidenceCalculator) regimeFactor(name Indicator, regime Regime) float64 {
	switch regime {
	case RegimeTrending:
		if trendIndicators[name] {
			return 1.2
		}
		if oscillatorIndicators[name] {
			return 0.8
		}
	case RegimeRanging:
		if oscillatorIndicators[name] {
			return 1.2
		}
		if trendIndicators[name] {
			return 0.8
		}
	}
	return 1.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

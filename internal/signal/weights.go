package signal

// fallbackWeight applies to indicators absent from a regime table. Kept for
// robustness against callers that bypass SignalGenerator's name validation.
const fallbackWeight = 0.05

// Regime weight tables. Trend followers dominate under trending, oscillators
// under ranging, volatility-sensitive indicators under volatile. Tables need
// not sum to 1.0; the combiner normalizes by total weight.
var regimeWeights = map[Regime]map[Indicator]float64{
	RegimeTrending: {
		IndicatorIchimoku:    0.20,
		IndicatorSuperTrend:  0.16,
		IndicatorMACross:     0.15,
		IndicatorADX:         0.14,
		IndicatorMACD:        0.14,
		IndicatorRSI:         0.06,
		IndicatorStochastic:  0.04,
		IndicatorBollinger:   0.04,
		IndicatorCandlestick: 0.04,
		IndicatorDivergence:  0.03,
	},
	RegimeRanging: {
		IndicatorRSI:         0.20,
		IndicatorStochastic:  0.17,
		IndicatorBollinger:   0.16,
		IndicatorDivergence:  0.14,
		IndicatorCandlestick: 0.10,
		IndicatorMACD:        0.08,
		IndicatorIchimoku:    0.05,
		IndicatorMACross:     0.04,
		IndicatorADX:         0.03,
		IndicatorSuperTrend:  0.03,
	},
	RegimeVolatile: {
		IndicatorATR:         0.20,
		IndicatorBollinger:   0.16,
		IndicatorSuperTrend:  0.14,
		IndicatorADX:         0.10,
		IndicatorRSI:         0.10,
		IndicatorMACD:        0.09,
		IndicatorIchimoku:    0.08,
		IndicatorCandlestick: 0.06,
		IndicatorStochastic:  0.04,
		IndicatorDivergence:  0.03,
	},
	RegimeDefault: {
		IndicatorRSI:         0.12,
		IndicatorMACD:        0.12,
		IndicatorIchimoku:    0.12,
		IndicatorBollinger:   0.10,
		IndicatorSuperTrend:  0.10,
		IndicatorMACross:     0.09,
		IndicatorADX:         0.08,
		IndicatorStochastic:  0.08,
		IndicatorCandlestick: 0.07,
		IndicatorDivergence:  0.06,
		IndicatorATR:         0.06,
	},
}

// WeightsFor returns the weight table for a regime. Unknown regimes fall
// back to the default table.
func WeightsFor(regime Regime) map[Indicator]float64 {
	if w, ok := regimeWeights[ParseRegime(string(regime))]; ok {
		return w
	}
	return regimeWeights[RegimeDefault]
}

// ResolveWeight looks up an indicator's weight in a regime table by
// normalized name. Missing indicators get fallbackWeight.
func ResolveWeight(table map[Indicator]float64, name Indicator) float64 {
	if w, ok := table[NormalizeIndicator(string(name))]; ok {
		return w
	}
	return fallbackWeight
}

// NominalWeight returns the default-regime weight for an indicator, used as
// the nominal weight on freshly generated signals.
func NominalWeight(name Indicator) float64 {
	return ResolveWeight(regimeWeights[RegimeDefault], name)
}

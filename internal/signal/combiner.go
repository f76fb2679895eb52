package signal

import "math"

// Combiner turns N independent indicator opinions into one verdict,
// honoring a market-regime-dependent weighting scheme. Pure: safe to share
// across request handlers without coordination.
type Combiner struct{}

// NewCombiner creates a combiner
func NewCombiner() *Combiner {
	return &Combiner{}
}

// Combine aggregates indicator signals into a single verdict.
//
// Each signal's direction maps to a value (STRONG_BUY=100 .. STRONG_SELL=0)
// and votes with an effective weight of regimeWeight * strength/100 *
// confidence. The score is the mean of the values under those effective
// weights, so a weak or unsure vote loses influence rather than dragging
// the score toward 50, and a lone signal scores exactly its value. When
// every effective weight is zero the score is the neutral 50.
//
// An empty signal list is a defined edge case, not an error: the verdict is
// neutral with score 50, confidence 0 and Error set to "no_signals".
func (c *Combiner) Combine(signals []IndicatorSignal, regime Regime) Verdict {
	regime = ParseRegime(string(regime))

	if len(signals) == 0 {
		return Verdict{
			Signal:     Neutral,
			Score:      50,
			Confidence: 0,
			Agreement:  0,
			Strength:   "weak",
			Regime:     regime,
			Breakdown:  []Contribution{},
			Error:      "no_signals",
		}
	}

	table := WeightsFor(regime)

	var (
		weightedSum float64
		totalWeight float64
		confSum     float64
		values      = make([]float64, 0, len(signals))
		breakdown   = make([]Contribution, 0, len(signals))
		bullish     int
		bearish     int
		neutral     int
	)

	for _, s := range signals {
		weight := ResolveWeight(table, s.Name)
		value := s.Direction.Value()
		strength := clamp(s.Strength, 0, 100)
		confidence := clamp(s.Confidence, 0, 1)

		effWeight := weight * (strength / 100) * confidence

		weightedSum += value * effWeight
		totalWeight += effWeight
		confSum += confidence
		values = append(values, value)

		switch {
		case s.Direction.IsBullish():
			bullish++
		case s.Direction.IsBearish():
			bearish++
		default:
			neutral++
		}

		breakdown = append(breakdown, Contribution{
			Name:       s.Name,
			Direction:  s.Direction,
			Value:      value,
			Strength:   strength,
			Weight:     weight,
			Confidence: confidence,
			Effective:  effWeight,
		})
	}

	score := 50.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	score = clamp(score, 0, 100)

	agreement := agreementFactor(values)
	confFrac := clamp(confSum/float64(len(signals))*agreement, 0, 1)

	return Verdict{
		Signal:       labelFor(score, confFrac),
		Score:        score,
		Confidence:   confFrac * 100,
		Agreement:    agreement,
		Strength:     strengthBand(score),
		Regime:       regime,
		BullishCount: bullish,
		BearishCount: bearish,
		NeutralCount: neutral,
		Breakdown:    breakdown,
	}
}

// agreementFactor measures how tightly the mapped direction values cluster:
// 1 - stdev/50, clamped to [0,1]. A single signal always agrees with itself.
func agreementFactor(values []float64) float64 {
	if len(values) < 2 {
		return 1.0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stdev := math.Sqrt(variance / float64(len(values)))

	return clamp(1-stdev/50, 0, 1)
}

// labelFor maps (score, confidence) to the final direction. Low-confidence
// readings collapse to the 3-way scale and can never claim "strong".
func labelFor(score, confFrac float64) Direction {
	if confFrac < 0.4 {
		switch {
		case score >= 70:
			return Buy
		case score <= 30:
			return Sell
		default:
			return Neutral
		}
	}

	switch {
	case score >= 80:
		return StrongBuy
	case score >= 60:
		return Buy
	case score <= 20:
		return StrongSell
	case score <= 40:
		return Sell
	default:
		return Neutral
	}
}

// strengthBand classifies overall signal strength by distance from 50
func strengthBand(score float64) string {
	switch {
	case score >= 80 || score <= 20:
		return "very_strong"
	case score >= 65 || score <= 35:
		return "strong"
	case score >= 55 || score <= 45:
		return "moderate"
	default:
		return "weak"
	}
}

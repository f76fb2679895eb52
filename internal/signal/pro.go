package signal

import "fmt"

// Risk levels assigned by the pro system
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Entry timing hints
const (
	EntryImmediate        = "immediate"
	EntryWaitPullback     = "wait_pullback"
	EntryWaitConfirmation = "wait_confirmation"
	EntryAvoid            = "avoid"
)

// Recommendation wraps a combined verdict with risk and entry-timing
// heuristics plus a human-readable summary.
type Recommendation struct {
	Verdict
	RiskLevel      string `json:"risk_level"`
	EntryTiming    string `json:"entry_timing"`
	Recommendation string `json:"recommendation"`
}

// ProSignalSystem layers trade-planning heuristics on top of the combiner.
// Stateless; safe for concurrent use.
type ProSignalSystem struct {
	combiner *Combiner
}

// NewProSignalSystem creates a pro signal system
func NewProSignalSystem() *ProSignalSystem {
	return &ProSignalSystem{combiner: NewCombiner()}
}

// Evaluate combines the signals and derives risk level, entry timing and a
// recommendation string from the verdict.
func (p *ProSignalSystem) Evaluate(signals []IndicatorSignal, regime Regime) Recommendation {
	verdict := p.combiner.Combine(signals, regime)

	rec := Recommendation{
		Verdict:     verdict,
		RiskLevel:   riskLevel(verdict),
		EntryTiming: entryTiming(verdict),
	}
	rec.Recommendation = describe(rec)
	return rec
}

func riskLevel(v Verdict) string {
	if v.Regime == RegimeVolatile {
		return RiskHigh
	}
	switch {
	case v.Confidence >= 70 && v.Agreement >= 0.7:
		return RiskLow
	case v.Confidence >= 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func entryTiming(v Verdict) string {
	if v.Signal == Neutral {
		return EntryAvoid
	}
	switch v.Strength {
	case "very_strong":
		if v.Confidence >= 60 {
			return EntryImmediate
		}
		return EntryWaitConfirmation
	case "strong":
		return EntryWaitPullback
	case "moderate":
		return EntryWaitConfirmation
	default:
		return EntryAvoid
	}
}

func describe(r Recommendation) string {
	var action string
	switch r.Signal {
	case StrongBuy:
		action = "Strong buy"
	case Buy:
		action = "Buy"
	case Sell:
		action = "Sell"
	case StrongSell:
		action = "Strong sell"
	default:
		action = "Hold"
	}

	var timing string
	switch r.EntryTiming {
	case EntryImmediate:
		timing = "enter at market"
	case EntryWaitPullback:
		timing = "wait for a pullback before entering"
	case EntryWaitConfirmation:
		timing = "wait for confirmation on the next bar"
	default:
		timing = "no entry recommended"
	}

	return fmt.Sprintf("%s (score %.0f/100, confidence %.0f%%, %s risk, %d of %d indicators aligned): %s.",
		action, r.Score, r.Confidence, r.RiskLevel,
		maxInt(r.BullishCount, r.BearishCount), len(r.Breakdown), timing)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

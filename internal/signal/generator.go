package signal

import (
	"fmt"
	"math"
)

// MACDReading is the standard MACD triple
type MACDReading struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IchimokuReading summarizes a full Ichimoku computation
type IchimokuReading struct {
	// Summary is one of strong_bull, bull, neutral, bear, strong_bear
	Summary       string  `json:"summary"`
	PriceVsCloud  float64 `json:"price_vs_cloud"`  // % distance, positive above
	TenkanVsKijun float64 `json:"tenkan_vs_kijun"` // % distance, positive bullish
}

// StochasticReading holds %K and %D
type StochasticReading struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// ADXReading holds ADX plus directional movement lines
type ADXReading struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`
}

// ATRReading holds average true range as a percent of price
type ATRReading struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// SuperTrendReading reports the SuperTrend line state
type SuperTrendReading struct {
	Direction   string  `json:"direction"` // "up" or "down"
	DistancePct float64 `json:"distance_pct"`
}

// MACrossReading reports a moving-average crossover state
type MACrossReading struct {
	State  string  `json:"state"` // "golden" or "death"
	GapPct float64 `json:"gap_pct"`
}

// CandlePattern is one detected candlestick pattern
type CandlePattern struct {
	Name        string  `json:"name"`
	Direction   string  `json:"direction"`   // "bullish" or "bearish"
	Reliability float64 `json:"reliability"` // 0-1
}

// DivergenceReading reports a price/indicator divergence
type DivergenceReading struct {
	Type     string  `json:"type"`     // "bullish" or "bearish"
	Strength float64 `json:"strength"` // 0-100
}

// Readings carries raw indicator computations supplied by the indicator
// provider. Nil fields are indicators that were unavailable this round.
type Readings struct {
	RSI        *float64           `json:"rsi,omitempty"`
	MACD       *MACDReading       `json:"macd,omitempty"`
	Ichimoku   *IchimokuReading   `json:"ichimoku,omitempty"`
	Bollinger  *float64           `json:"bollinger,omitempty"` // band position in [0,1]
	Stochastic *StochasticReading `json:"stochastic,omitempty"`
	ADX        *ADXReading        `json:"adx,omitempty"`
	ATR        *ATRReading        `json:"atr,omitempty"`
	SuperTrend *SuperTrendReading `json:"supertrend,omitempty"`
	MACross    *MACrossReading    `json:"ma_cross,omitempty"`
	Patterns   []CandlePattern    `json:"patterns,omitempty"`
	Divergence *DivergenceReading `json:"divergence,omitempty"`
}

// Generator converts raw indicator readings into IndicatorSignal records
// and validates indicator names at the system boundary.
type Generator struct {
	confidence *ConfidenceCalculator
}

// NewGenerator creates a generator
func NewGenerator() *Generator {
	return &Generator{confidence: NewConfidenceCalculator()}
}

// Validate checks externally supplied signals against the closed indicator
// enum and value ranges. Returns the first violation found.
func (g *Generator) Validate(signals []IndicatorSignal) error {
	for i, s := range signals {
		if !KnownIndicator(string(s.Name)) {
			return fmt.Errorf("signal %d: unknown indicator %q", i, s.Name)
		}
		if s.Strength < 0 || s.Strength > 100 {
			return fmt.Errorf("signal %d (%s): strength %.2f outside [0,100]", i, s.Name, s.Strength)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("signal %d (%s): confidence %.2f outside [0,1]", i, s.Name, s.Confidence)
		}
	}
	return nil
}

// Generate converts available readings into signals. Missing readings are
// skipped; the combiner handles whatever subset remains.
func (g *Generator) Generate(r Readings, regime Regime) []IndicatorSignal {
	regime = ParseRegime(string(regime))
	signals := make([]IndicatorSignal, 0, 11)

	if r.RSI != nil {
		signals = append(signals, g.fromRSI(*r.RSI, regime))
	}
	if r.MACD != nil {
		signals = append(signals, g.fromMACD(*r.MACD, regime))
	}
	if r.Ichimoku != nil {
		signals = append(signals, g.fromIchimoku(*r.Ichimoku, regime))
	}
	if r.Bollinger != nil {
		signals = append(signals, g.fromBollinger(*r.Bollinger, regime))
	}
	if r.Stochastic != nil {
		signals = append(signals, g.fromStochastic(*r.Stochastic, regime))
	}
	if r.ADX != nil {
		signals = append(signals, g.fromADX(*r.ADX, regime))
	}
	if r.ATR != nil {
		signals = append(signals, g.fromATR(*r.ATR, regime))
	}
	if r.SuperTrend != nil {
		signals = append(signals, g.fromSuperTrend(*r.SuperTrend, regime))
	}
	if r.MACross != nil {
		signals = append(signals, g.fromMACross(*r.MACross, regime))
	}
	if len(r.Patterns) > 0 {
		signals = append(signals, g.fromPatterns(r.Patterns, regime))
	}
	if r.Divergence != nil {
		signals = append(signals, g.fromDivergence(*r.Divergence, regime))
	}

	return signals
}

func (g *Generator) build(name Indicator, dir Direction, strength, rawValue float64, regime Regime, data map[string]interface{}) IndicatorSignal {
	return IndicatorSignal{
		Name:       name,
		Direction:  dir,
		Strength:   clamp(strength, 0, 100),
		Weight:     NominalWeight(name),
		Confidence: g.confidence.Score(name, rawValue, nil, regime, 1.0),
		Data:       data,
	}
}

func (g *Generator) fromRSI(value float64, regime Regime) IndicatorSignal {
	dir := Neutral
	switch {
	case value <= 20:
		dir = StrongBuy
	case value <= 30:
		dir = Buy
	case value >= 80:
		dir = StrongSell
	case value >= 70:
		dir = Sell
	}
	strength := math.Abs(50-value) * 2
	return g.build(IndicatorRSI, dir, strength, value, regime,
		map[string]interface{}{"rsi": value})
}

func (g *Generator) fromMACD(m MACDReading, regime Regime) IndicatorSignal {
	dir := Neutral
	strength := 40.0
	if m.Histogram > 0 && m.MACD > m.Signal {
		dir = Buy
		strength = 60
	} else if m.Histogram < 0 && m.MACD < m.Signal {
		dir = Sell
		strength = 60
	}
	// A histogram large relative to the MACD line marks an accelerating move
	if m.MACD != 0 && math.Abs(m.Histogram) > math.Abs(m.MACD)*0.25 {
		strength += 15
	}
	return g.build(IndicatorMACD, dir, strength, m.Histogram, regime,
		map[string]interface{}{"macd": m.MACD, "signal": m.Signal, "histogram": m.Histogram})
}

func (g *Generator) fromIchimoku(ic IchimokuReading, regime Regime) IndicatorSignal {
	var dir Direction
	var strength float64
	switch ic.Summary {
	case "strong_bull":
		dir, strength = StrongBuy, 90
	case "bull":
		dir, strength = Buy, 70
	case "bear":
		dir, strength = Sell, 70
	case "strong_bear":
		dir, strength = StrongSell, 90
	default:
		dir, strength = Neutral, 40
	}
	return g.build(IndicatorIchimoku, dir, strength, ic.PriceVsCloud, regime,
		map[string]interface{}{"summary": ic.Summary, "price_vs_cloud": ic.PriceVsCloud})
}

// fromBollinger treats band position as mean-reverting: price hugging the
// lower band votes buy, the upper band votes sell.
func (g *Generator) fromBollinger(position float64, regime Regime) IndicatorSignal {
	position = clamp(position, 0, 1)
	dir := Neutral
	switch {
	case position <= 0.05:
		dir = StrongBuy
	case position <= 0.2:
		dir = Buy
	case position >= 0.95:
		dir = StrongSell
	case position >= 0.8:
		dir = Sell
	}
	strength := math.Abs(0.5-position) * 200
	return g.build(IndicatorBollinger, dir, strength, position, regime,
		map[string]interface{}{"position": position})
}

func (g *Generator) fromStochastic(st StochasticReading, regime Regime) IndicatorSignal {
	dir := Neutral
	switch {
	case st.K <= 20 && st.K > st.D:
		dir = StrongBuy
	case st.K <= 20:
		dir = Buy
	case st.K >= 80 && st.K < st.D:
		dir = StrongSell
	case st.K >= 80:
		dir = Sell
	}
	strength := math.Abs(50-st.K) * 2
	return g.build(IndicatorStochastic, dir, strength, st.K, regime,
		map[string]interface{}{"k": st.K, "d": st.D})
}

func (g *Generator) fromADX(a ADXReading, regime Regime) IndicatorSignal {
	dir := Neutral
	if a.ADX >= 20 {
		if a.PlusDI > a.MinusDI {
			dir = Buy
		} else if a.MinusDI > a.PlusDI {
			dir = Sell
		}
	}
	strength := math.Min(100, a.ADX*2)
	return g.build(IndicatorADX, dir, strength, a.ADX, regime,
		map[string]interface{}{"adx": a.ADX, "plus_di": a.PlusDI, "minus_di": a.MinusDI})
}

// fromATR is non-directional; its neutral vote tempers the score when
// volatility is elevated and the volatile weight table amplifies it.
func (g *Generator) fromATR(a ATRReading, regime Regime) IndicatorSignal {
	strength := math.Min(100, a.Percent*25)
	return g.build(IndicatorATR, Neutral, strength, a.Percent, regime,
		map[string]interface{}{"atr": a.Value, "atr_percent": a.Percent})
}

func (g *Generator) fromSuperTrend(st SuperTrendReading, regime Regime) IndicatorSignal {
	dir := Neutral
	if st.Direction == "up" {
		dir = Buy
	} else if st.Direction == "down" {
		dir = Sell
	}
	strength := 60 + math.Min(30, math.Abs(st.DistancePct)*10)
	return g.build(IndicatorSuperTrend, dir, strength, st.DistancePct, regime,
		map[string]interface{}{"direction": st.Direction, "distance_pct": st.DistancePct})
}

func (g *Generator) fromMACross(mc MACrossReading, regime Regime) IndicatorSignal {
	dir := Neutral
	if mc.State == "golden" {
		dir = Buy
	} else if mc.State == "death" {
		dir = Sell
	}
	strength := 55 + math.Min(35, math.Abs(mc.GapPct)*7)
	return g.build(IndicatorMACross, dir, strength, mc.GapPct, regime,
		map[string]interface{}{"state": mc.State, "gap_pct": mc.GapPct})
}

// fromPatterns nets the detected candlestick patterns into one vote,
// weighting each pattern by its reliability.
func (g *Generator) fromPatterns(patterns []CandlePattern, regime Regime) IndicatorSignal {
	var bull, bear float64
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		rel := clamp(p.Reliability, 0, 1)
		if p.Direction == "bullish" {
			bull += rel
		} else if p.Direction == "bearish" {
			bear += rel
		}
		names = append(names, p.Name)
	}

	dir := Neutral
	net := bull - bear
	if net > 0 {
		dir = Buy
	} else if net < 0 {
		dir = Sell
	}
	strength := math.Min(100, math.Abs(net)*60)
	return g.build(IndicatorCandlestick, dir, strength, net, regime,
		map[string]interface{}{"patterns": names, "bullish_weight": bull, "bearish_weight": bear})
}

func (g *Generator) fromDivergence(d DivergenceReading, regime Regime) IndicatorSignal {
	dir := Neutral
	if d.Type == "bullish" {
		dir = Buy
	} else if d.Type == "bearish" {
		dir = Sell
	}
	return g.build(IndicatorDivergence, dir, clamp(d.Strength, 0, 100), d.Strength, regime,
		map[string]interface{}{"type": d.Type})
}

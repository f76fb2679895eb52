package signal

import "strings"

// Direction represents a directional trading opinion
type Direction string

const (
	StrongBuy  Direction = "STRONG_BUY"
	Buy        Direction = "BUY"
	Neutral    Direction = "NEUTRAL"
	Sell       Direction = "SELL"
	StrongSell Direction = "STRONG_SELL"
)

// Value maps a direction to its numeric score contribution
func (d Direction) Value() float64 {
	switch d {
	case StrongBuy:
		return 100
	case Buy:
		return 70
	case Sell:
		return 30
	case StrongSell:
		return 0
	default:
		return 50
	}
}

// IsBullish returns true for BUY-family directions
func (d Direction) IsBullish() bool {
	return d == StrongBuy || d == Buy
}

// IsBearish returns true for SELL-family directions
func (d Direction) IsBearish() bool {
	return d == StrongSell || d == Sell
}

// Regime represents a market-condition tag used to select indicator weights
type Regime string

const (
	RegimeTrending Regime = "trending"
	RegimeRanging  Regime = "ranging"
	RegimeVolatile Regime = "volatile"
	RegimeDefault  Regime = "default"
)

// ParseRegime normalizes a regime tag; unknown tags fall back to default
func ParseRegime(s string) Regime {
	switch Regime(strings.ToLower(strings.TrimSpace(s))) {
	case RegimeTrending:
		return RegimeTrending
	case RegimeRanging:
		return RegimeRanging
	case RegimeVolatile:
		return RegimeVolatile
	default:
		return RegimeDefault
	}
}

// Indicator identifies a signal source. The set is closed: SignalGenerator
// rejects readings for names outside it.
type Indicator string

const (
	IndicatorRSI         Indicator = "rsi"
	IndicatorMACD        Indicator = "macd"
	IndicatorIchimoku    Indicator = "ichimoku"
	IndicatorBollinger   Indicator = "bollinger"
	IndicatorStochastic  Indicator = "stochastic"
	IndicatorADX         Indicator = "adx"
	IndicatorATR         Indicator = "atr"
	IndicatorSuperTrend  Indicator = "supertrend"
	IndicatorMACross     Indicator = "ma_cross"
	IndicatorCandlestick Indicator = "candlestick"
	IndicatorDivergence  Indicator = "divergence"
)

// NormalizeIndicator converts a free-form indicator name to its canonical
// key: lowercase, spaces replaced with underscores.
func NormalizeIndicator(name string) Indicator {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	return Indicator(key)
}

// KnownIndicator reports whether name maps to a member of the closed set
func KnownIndicator(name string) bool {
	switch NormalizeIndicator(name) {
	case IndicatorRSI, IndicatorMACD, IndicatorIchimoku, IndicatorBollinger,
		IndicatorStochastic, IndicatorADX, IndicatorATR, IndicatorSuperTrend,
		IndicatorMACross, IndicatorCandlestick, IndicatorDivergence:
		return true
	}
	return false
}

// IndicatorSignal is one indicator's vote. Constructed fresh per analysis
// call and never mutated afterwards.
type IndicatorSignal struct {
	Name       Indicator              `json:"name"`
	Direction  Direction              `json:"signal"`
	Strength   float64                `json:"strength"`   // 0-100, indicator-specific intensity
	Weight     float64                `json:"weight"`     // nominal importance, may be overridden by regime lookup
	Confidence float64                `json:"confidence"` // 0-1, reliability of this reading
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Contribution records one indicator's share of a combined verdict
type Contribution struct {
	Name       Indicator `json:"name"`
	Direction  Direction `json:"signal"`
	Value      float64   `json:"value"`      // mapped direction value
	Strength   float64   `json:"strength"`
	Weight     float64   `json:"weight"`     // resolved regime weight
	Confidence float64   `json:"confidence"`
	Effective  float64   `json:"effective"`  // weight after strength/confidence scaling
}

// Verdict is the combiner's output
type Verdict struct {
	Signal       Direction      `json:"combined_signal"`
	Score        float64        `json:"score"`      // 0-100
	Confidence   float64        `json:"confidence"` // 0-100
	Agreement    float64        `json:"agreement"`  // 0-1
	Strength     string         `json:"signal_strength"` // very_strong, strong, moderate, weak
	Regime       Regime         `json:"regime"`
	BullishCount int            `json:"bullish_count"`
	BearishCount int            `json:"bearish_count"`
	NeutralCount int            `json:"neutral_count"`
	Breakdown    []Contribution `json:"breakdown"`
	Error        string         `json:"error,omitempty"`
}

package api

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bist-signal-engine/internal/backtest"
	"bist-signal-engine/internal/cache"
	"bist-signal-engine/internal/signal"
)

// analysisRequest carries raw indicator readings for one symbol
type analysisRequest struct {
	Symbol   string          `json:"symbol" binding:"required"`
	Regime   string          `json:"regime"`
	Readings signal.Readings `json:"readings"`
}

// combineRequest carries pre-built indicator signals
type combineRequest struct {
	Regime  string                   `json:"regime"`
	Signals []signal.IndicatorSignal `json:"signals"`
}

// analysisResponse wraps a recommendation with its symbol
type analysisResponse struct {
	Symbol string `json:"symbol"`
	signal.Recommendation
	AnalyzedAt    time.Time       `json:"analyzed_at"`
	RecordedTrade *backtest.Trade `json:"recorded_trade,omitempty"`
}

// handleAnalysis generates signals from raw readings and evaluates them
func (s *Server) handleAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	regime := s.resolveRegime(c, req.Regime)

	signals := s.generator.Generate(req.Readings, regime)
	if len(signals) == 0 {
		errorResponse(c, http.StatusBadRequest, "no indicator readings supplied")
		return
	}

	resp := analysisResponse{
		Symbol:         symbol,
		Recommendation: s.pro.Evaluate(signals, regime),
		AnalyzedAt:     time.Now(),
	}
	resp.RecordedTrade = s.recordStrongVerdict(c, symbol, resp.Recommendation)

	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetJSON(c.Request.Context(), cache.AnalysisKey(symbol), resp, cache.DefaultAnalysisTTL); err != nil {
			s.logger.Debug().Err(err).Str("symbol", symbol).Msg("analysis cache write failed")
		}
	}

	successResponse(c, resp)
}

// handleGetAnalysis serves the most recent cached verdict for a symbol.
// Verdicts live in the cache for the analysis TTL; after that, callers
// re-analyze via POST.
func (s *Server) handleGetAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	if s.cacheSvc == nil {
		errorResponse(c, http.StatusNotFound, "no recent analysis for "+symbol)
		return
	}

	var resp analysisResponse
	if err := s.cacheSvc.GetJSON(c.Request.Context(), cache.AnalysisKey(symbol), &resp); err != nil {
		errorResponse(c, http.StatusNotFound, "no recent analysis for "+symbol)
		return
	}

	successResponse(c, resp)
}

// recordStrongVerdict registers decisive analysis verdicts as paper trades.
// Needs a current price; when the provider has none for the symbol the
// verdict is served without recording.
func (s *Server) recordStrongVerdict(c *gin.Context, symbol string, rec signal.Recommendation) *backtest.Trade {
	bullish := rec.Score >= 70 && rec.Signal.IsBullish()
	bearish := rec.Score <= 30 && rec.Signal.IsBearish()
	if !bullish && !bearish {
		return nil
	}

	snapshot, err := s.provider.PriceSnapshot(c.Request.Context(), []string{symbol})
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price unavailable, verdict not recorded")
		return nil
	}
	price, ok := snapshot[symbol]
	if !ok {
		return nil
	}

	trade, err := s.engine.RecordSignal(c.Request.Context(), symbol,
		tradeSignal(rec.Signal), int(math.Round(rec.Score)), price, time.Time{})
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("failed to record verdict as paper trade")
		return nil
	}
	return &trade
}

// tradeSignal maps a verdict direction to the recorded signal string
func tradeSignal(d signal.Direction) string {
	switch d {
	case signal.StrongBuy:
		return "GUCLU_AL"
	case signal.Buy:
		return "AL"
	case signal.Sell:
		return "SAT"
	case signal.StrongSell:
		return "GUCLU_SAT"
	default:
		return "NOTR"
	}
}

// handleCombine evaluates externally supplied indicator signals
func (s *Server) handleCombine(c *gin.Context) {
	var req combineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := s.generator.Validate(req.Signals); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	regime := s.resolveRegime(c, req.Regime)
	successResponse(c, s.pro.Evaluate(req.Signals, regime))
}

// handleMarketCondition classifies the broad index
func (s *Server) handleMarketCondition(c *gin.Context) {
	bars, err := s.provider.IndexBars(c.Request.Context(), s.indexSymbol, 200)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "index data unavailable: "+err.Error())
		return
	}

	cond := s.analyzer.Classify(bars)
	s.eventBus.PublishMarketCondition(cond.Condition, cond.Strength, string(cond.Regime))

	successResponse(c, cond)
}

// resolveRegime uses the request's regime tag when given, otherwise derives
// it from the current index classification. Index failures fall back to the
// default weight table rather than failing the analysis.
func (s *Server) resolveRegime(c *gin.Context, tag string) signal.Regime {
	if tag != "" {
		return signal.ParseRegime(tag)
	}

	bars, err := s.provider.IndexBars(c.Request.Context(), s.indexSymbol, 200)
	if err != nil {
		s.logger.Warn().Err(err).Msg("index bars unavailable, using default regime")
		return signal.RegimeDefault
	}
	return s.analyzer.Classify(bars).Regime
}

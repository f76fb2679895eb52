package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bist-signal-engine/internal/backtest"
)

// recordSignalRequest registers a new paper trade
type recordSignalRequest struct {
	Symbol    string    `json:"symbol" binding:"required"`
	Signal    string    `json:"signal" binding:"required"`
	Score     int       `json:"score"`
	Price     float64   `json:"price" binding:"required"`
	EntryDate time.Time `json:"entry_date"`
}

// updateSignalsRequest carries an optional explicit price snapshot. When
// empty, prices are fetched from the provider for all active symbols.
type updateSignalsRequest struct {
	Prices map[string]float64 `json:"prices"`
}

// handleRecordSignal registers a signal as an active paper trade
func (s *Server) handleRecordSignal(c *gin.Context) {
	var req recordSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	trade, err := s.engine.RecordSignal(
		c.Request.Context(),
		strings.ToUpper(strings.TrimSpace(req.Symbol)),
		req.Signal,
		req.Score,
		req.Price,
		req.EntryDate,
	)
	if err != nil {
		var perr *backtest.PersistenceError
		if errors.As(err, &perr) {
			errorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	successResponse(c, trade)
}

// handleUpdateSignals advances active trades against current prices
func (s *Server) handleUpdateSignals(c *gin.Context) {
	var req updateSignalsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	prices := req.Prices
	if len(prices) == 0 {
		symbols := s.engine.ActiveSymbols()
		if len(symbols) == 0 {
			successResponse(c, gin.H{"closed": []backtest.Trade{}, "checked": 0})
			return
		}

		snapshot, err := s.provider.PriceSnapshot(c.Request.Context(), symbols)
		if err != nil {
			errorResponse(c, http.StatusBadGateway, "price snapshot unavailable: "+err.Error())
			return
		}
		prices = snapshot
	}

	closed, err := s.engine.UpdateSignals(c.Request.Context(), prices)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, gin.H{
		"closed":  closed,
		"checked": len(prices),
	})
}

// handleGetPerformance returns the aggregate performance snapshot
func (s *Server) handleGetPerformance(c *gin.Context) {
	successResponse(c, s.engine.PerformanceStats())
}

// handleGetActiveSignals returns open paper trades
func (s *Server) handleGetActiveSignals(c *gin.Context) {
	successResponse(c, s.engine.ActiveSignals())
}

// handleGetResults returns the most recently completed trades
func (s *Server) handleGetResults(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			errorResponse(c, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	successResponse(c, s.engine.RecentResults(limit))
}

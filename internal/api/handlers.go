package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"level-engine/internal/confluence"
	"level-engine/internal/levels"
	"level-engine/internal/lines"
)

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	marketHealthy := true
	if _, err := s.provider.GetCurrentPrice(ctx, "BTCUSDT"); err != nil {
		marketHealthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !marketHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"market": marketHealthy,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleLevels computes key support and resistance levels for a symbol
func (s *Server) handleLevels(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	candles, err := s.provider.GetCandles(ctx, symbol, s.config.Interval, s.config.CandleLimit)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch candles: "+err.Error())
		return
	}

	price, err := s.provider.GetCurrentPrice(ctx, symbol)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch price: "+err.Error())
		return
	}

	book, err := s.provider.GetOrderBook(ctx, symbol, s.config.Depth)
	if err != nil {
		// Order flow is one lens of several; levels still work without it
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Order book unavailable")
		book = nil
	}

	in := levels.Input{
		Candles:      candles,
		CurrentPrice: price,
		OrderBook:    book,
	}

	if s.analyzer != nil {
		analysis, err := s.analyzer.AnalyzeMarket(ctx, symbol, candles, price)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("AI analysis unavailable, using quant levels only")
		} else {
			in.AISupports = analysis.KeyLevels.Support
			in.AIResistances = analysis.KeyLevels.Resistance
		}
	}

	result := s.engine.FindKeyLevels(in)
	if result.Outcome == levels.OutcomeInsufficient {
		errorResponse(c, http.StatusUnprocessableEntity, "insufficient candle data for level detection")
		return
	}

	s.pipe.NotifyLevels(symbol, string(result.Metadata.Source),
		len(result.Supports), len(result.Resistances), result.Metadata.AIConfidence)

	successResponse(c, gin.H{
		"symbol": symbol,
		"price":  price,
		"levels": result,
	})
}

// handleLines computes trendlines, channels and zones for a symbol
func (s *Server) handleLines(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	candles, err := s.provider.GetCandles(ctx, symbol, s.config.Interval, s.config.CandleLimit)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch candles: "+err.Error())
		return
	}

	price, err := s.provider.GetCurrentPrice(ctx, symbol)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "failed to fetch price: "+err.Error())
		return
	}

	in := lines.Input{
		Candles:      candles,
		CurrentPrice: price,
	}

	if s.analyzer != nil {
		analysis, err := s.analyzer.AnalyzeMarket(ctx, symbol, candles, price)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("AI analysis unavailable, drawing without AI zones")
		} else {
			in.AISupports = analysis.KeyLevels.Support
			in.AIResistances = analysis.KeyLevels.Resistance
		}
	}

	annotations := s.drawer.Draw(in)

	successResponse(c, gin.H{
		"symbol":      symbol,
		"price":       price,
		"annotations": annotations,
	})
}

// signalRequest is the POST /signals body
type signalRequest struct {
	Symbol    string  `json:"symbol" binding:"required"`
	Kind      string  `json:"kind" binding:"required"`
	Price     float64 `json:"price"`
	MessageID int64   `json:"message_id"`
	Timestamp int64   `json:"timestamp_ms"`
	Text      string  `json:"text"`
}

// handleSignal ingests one external signal into the confluence tracker
func (s *Server) handleSignal(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid signal payload: "+err.Error())
		return
	}

	kind := confluence.Kind(strings.ToLower(req.Kind))
	if kind != confluence.KindAlpha && kind != confluence.KindFOMO {
		errorResponse(c, http.StatusBadRequest, "unknown signal kind: "+req.Kind)
		return
	}

	if req.Timestamp == 0 {
		req.Timestamp = time.Now().UnixMilli()
	}

	fired := s.pipe.HandleSignal(confluence.Signal{
		Symbol:    strings.ToUpper(req.Symbol),
		Kind:      kind,
		Price:     req.Price,
		MessageID: req.MessageID,
		Timestamp: req.Timestamp,
	}, req.Text)

	successResponse(c, gin.H{
		"accepted":   true,
		"confluence": fired,
	})
}

// handleQueueStats returns analysis queue counters
func (s *Server) handleQueueStats(c *gin.Context) {
	successResponse(c, s.pipe.Stats())
}

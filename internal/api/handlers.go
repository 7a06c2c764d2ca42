package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solana-trading-bot/internal/engine"
	"solana-trading-bot/internal/errs"
	"solana-trading-bot/internal/fees"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"mode":    string(s.engine.Mode()),
		"circuit": string(s.breaker.State()),
		"pending": s.engine.PendingCount(),
	})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	cash, holdings := s.engine.Portfolio().Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"cash":     cash,
		"holdings": holdings,
		"pending":  s.engine.PendingCount(),
		"mode":     string(s.engine.Mode()),
	})
}

func (s *Server) handleRiskMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.riskMgr.Metrics())
}

func (s *Server) handleCircuit(c *gin.Context) {
	c.JSON(http.StatusOK, s.breaker.Stats())
}

func (s *Server) handleFees(c *gin.Context) {
	priority := fees.Priority(c.DefaultQuery("priority", string(fees.PriorityNormal)))
	switch priority {
	case fees.PriorityLow, fees.PriorityNormal, fees.PriorityHigh:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be low, normal or high"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"estimate": s.fees.Estimate(priority),
		"stats":    s.fees.Stats(),
	})
}

func (s *Server) handleRateLimit(c *gin.Context) {
	count, max, resetIn := s.limiter.Usage()
	c.JSON(http.StatusOK, gin.H{
		"count":       count,
		"max":         max,
		"reset_in_ms": resetIn.Milliseconds(),
	})
}

func (s *Server) handleRecentTrades(c *gin.Context) {
	if s.store == nil {
		// No persistence configured, serve the in-memory ledger.
		c.JSON(http.StatusOK, gin.H{"trades": s.riskMgr.Ledger()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	trades, err := s.store.RecentTrades(ctx, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load trades")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trades"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

type submitTradeRequest struct {
	Symbol     string  `json:"symbol" binding:"required"`
	Side       string  `json:"side" binding:"required"`
	Price      float64 `json:"price" binding:"required,gt=0"`
	Size       float64 `json:"size"`
	Confidence float64 `json:"confidence" binding:"required,gt=0,lte=1"`
}

func (s *Server) handleSubmitTrade(c *gin.Context) {
	var req submitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side := engine.Side(req.Side)
	if side != engine.SideBuy && side != engine.SideSell {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be buy or sell"})
		return
	}

	sig := engine.NewSignal(req.Symbol, side, req.Price, req.Confidence)
	sig.Size = req.Size
	sig.Reason = "manual submission"

	result, err := s.engine.Execute(c.Request.Context(), sig)
	if err != nil {
		c.JSON(statusForError(err), gin.H{
			"error": err.Error(),
			"kind":  string(errs.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// statusForError maps the error taxonomy onto HTTP status codes
func statusForError(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindInsufficientFunds, errs.KindInvalidTransaction:
		return http.StatusUnprocessableEntity
	case errs.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case errs.KindTimeout:
		return http.StatusGatewayTimeout
	case errs.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

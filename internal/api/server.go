// Package api serves the read-side HTTP surface: portfolio and risk
// snapshots, breaker and fee state, manual trade submission, metrics
// and the websocket event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"solana-trading-bot/internal/circuit"
	"solana-trading-bot/internal/database"
	"solana-trading-bot/internal/engine"
	"solana-trading-bot/internal/events"
	"solana-trading-bot/internal/fees"
	"solana-trading-bot/internal/ratelimit"
	"solana-trading-bot/internal/risk"
)

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  string
	ProductionMode  bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     ServerConfig
	logger     zerolog.Logger

	engine  *engine.Engine
	riskMgr *risk.Manager
	breaker *circuit.Breaker
	limiter *ratelimit.Limiter
	fees    *fees.Estimator
	store   *database.TradeStore // nil when persistence is disabled
	hub     *events.Hub
}

// NewServer creates a new API server. Store may be nil.
func NewServer(
	config ServerConfig,
	eng *engine.Engine,
	riskMgr *risk.Manager,
	breaker *circuit.Breaker,
	limiter *ratelimit.Limiter,
	estimator *fees.Estimator,
	store *database.TradeStore,
	hub *events.Hub,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:  router,
		config:  config,
		logger:  logger,
		engine:  eng,
		riskMgr: riskMgr,
		breaker: breaker,
		limiter: limiter,
		fees:    estimator,
		store:   store,
		hub:     hub,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.hub != nil {
		s.router.GET("/ws", func(c *gin.Context) {
			s.hub.ServeWS(c.Writer, c.Request)
		})
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/portfolio", s.handlePortfolio)
		v1.GET("/risk/metrics", s.handleRiskMetrics)
		v1.GET("/circuit", s.handleCircuit)
		v1.GET("/fees", s.handleFees)
		v1.GET("/ratelimit", s.handleRateLimit)
		v1.GET("/trades", s.handleRecentTrades)
		v1.POST("/trades", s.handleSubmitTrade)
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

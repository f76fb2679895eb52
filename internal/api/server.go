package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bist-signal-engine/internal/backtest"
	"bist-signal-engine/internal/cache"
	"bist-signal-engine/internal/database"
	"bist-signal-engine/internal/events"
	"bist-signal-engine/internal/marketdata"
	"bist-signal-engine/internal/regime"
	"bist-signal-engine/internal/signal"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	logger      zerolog.Logger
	eventBus    *events.EventBus
	rateLimiter *RateLimiter

	engine    *backtest.Engine
	pro       *signal.ProSignalSystem
	generator *signal.Generator
	analyzer  *regime.Analyzer
	provider  marketdata.Provider

	db       *database.DB        // nil when postgres is disabled
	cacheSvc *cache.CacheService // nil when redis is disabled
	wsHub    *WSHub

	indexSymbol string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ReadTimeout    int
	WriteTimeout   int
	ProductionMode bool
	IndexSymbol    string
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	engine *backtest.Engine,
	provider marketdata.Provider,
	eventBus *events.EventBus,
	db *database.DB, // Can be nil if postgres is disabled
	cacheService *cache.CacheService, // Can be nil if redis is disabled
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{config.AllowedOrigins}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	indexSymbol := config.IndexSymbol
	if indexSymbol == "" {
		indexSymbol = "XU100"
	}

	server := &Server{
		router:      router,
		config:      config,
		logger:      logger.With().Str("component", "api").Logger(),
		eventBus:    eventBus,
		rateLimiter: NewRateLimiter(120, time.Minute),
		engine:      engine,
		pro:         signal.NewProSignalSystem(),
		generator:   signal.NewGenerator(),
		analyzer:    regime.NewAnalyzer(),
		provider:    provider,
		db:          db,
		cacheSvc:    cacheService,
		indexSymbol: indexSymbol,
	}

	server.setupRoutes()
	server.wsHub = InitWebSocket(eventBus, server.logger)

	return server
}

// rateLimitMiddleware limits requests that reach out to the market data
// provider. Endpoints serving in-memory state are exempt.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	noRateLimitPaths := map[string]bool{
		"/api/backtest/performance": true,
		"/api/backtest/active":      true,
		"/api/backtest/results":     true,
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if noRateLimitPaths[path] {
			c.Next()
			return
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	{
		// Analysis endpoints
		api.POST("/analysis", s.handleAnalysis)
		api.POST("/analysis/combine", s.handleCombine)
		api.GET("/analysis/:symbol", s.handleGetAnalysis)

		// Market condition endpoint
		api.GET("/market/condition", s.handleMarketCondition)

		// Backtest endpoints
		api.POST("/backtest/signals", s.handleRecordSignal)
		api.POST("/backtest/update", s.handleUpdateSignals)
		api.GET("/backtest/performance", s.handleGetPerformance)
		api.GET("/backtest/active", s.handleGetActiveSignals)
		api.GET("/backtest/results", s.handleGetResults)
	}

	// WebSocket endpoint for live signal and trade events
	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	readTimeout := time.Duration(s.config.ReadTimeout) * time.Second
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(s.config.WriteTimeout) * time.Second
	if writeTimeout == 0 {
		writeTimeout = 15 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
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

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := gin.H{"status": "healthy"}

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			resp["status"] = "unhealthy"
			resp["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "healthy"
	}

	if s.cacheSvc != nil {
		if s.cacheSvc.IsHealthy() {
			resp["cache"] = "healthy"
		} else {
			resp["cache"] = "degraded" // analysis falls back to the provider
		}
	}

	c.JSON(http.StatusOK, resp)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

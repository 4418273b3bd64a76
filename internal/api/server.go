package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"level-engine/internal/ai"
	"level-engine/internal/levels"
	"level-engine/internal/lines"
	"level-engine/internal/market"
	"level-engine/internal/pipeline"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
	CandleLimit    int
	Depth          int
	Interval       string
}

// Server exposes the level engine over HTTP
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     ServerConfig

	provider market.Provider
	engine   *levels.Engine
	drawer   *lines.Drawer
	pipe     *pipeline.Pipeline
	analyzer ai.Analyzer // nil when AI is disabled
	logger   zerolog.Logger
}

// NewServer creates a new API server. analyzer may be nil.
func NewServer(
	config ServerConfig,
	provider market.Provider,
	engine *levels.Engine,
	drawer *lines.Drawer,
	pipe *pipeline.Pipeline,
	analyzer ai.Analyzer,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if config.CandleLimit <= 0 {
		config.CandleLimit = 200
	}
	if config.Depth <= 0 {
		config.Depth = 100
	}
	if config.Interval == "" {
		config.Interval = "1h"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:   router,
		config:   config,
		provider: provider,
		engine:   engine,
		drawer:   drawer,
		pipe:     pipe,
		analyzer: analyzer,
		logger:   logger.With().Str("component", "APIServer").Logger(),
	}

	server.setupRoutes()

	return server
}

// requestIDMiddleware tags every request with a trace id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/levels/:symbol", s.handleLevels)
		v1.GET("/lines/:symbol", s.handleLines)
		v1.POST("/signals", s.handleSignal)
		v1.GET("/queue/stats", s.handleQueueStats)
	}
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
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

// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/api"
	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/config"
	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/metrics"
	"github.com/stwalsh4118/epgrab/internal/middleware"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	db         *db.DB
	ingest     *epg.Handler
	redis      *cache.Redis
	breaker    *transport.CircuitBreaker
	guideCache *cache.GuideCache
	metrics    *metrics.Metrics
	router     *gin.Engine
	server     *http.Server

	// runs started over HTTP live until Shutdown
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a new server instance. ingest must have a store. redis, breaker
// and m may be nil.
func New(cfg *config.Config, database *db.DB, ingest *epg.Handler, redis *cache.Redis, breaker *transport.CircuitBreaker, m *metrics.Metrics) *Server {
	var guideCache *cache.GuideCache
	if redis != nil {
		guideCache = cache.NewGuideCache(redis, ingest.Source(), cfg.Cache.TTL)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		db:         database,
		ingest:     ingest,
		redis:      redis,
		breaker:    breaker,
		guideCache: guideCache,
		metrics:    m,
		baseCtx:    baseCtx,
		cancel:     cancel,
	}
}

// Router builds the router on first use and returns it
func (s *Server) Router() http.Handler {
	if s.router == nil {
		s.setupRouter()
	}
	return s.router
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create new Gin router
	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger())           // Structured request logging
	s.router.Use(middleware.RequestMetrics(s.metrics)) // Per-route latency histogram
	s.router.Use(gin.Recovery())                       // Panic recovery
	s.router.Use(cors.Default())                       // CORS support

	store := s.ingest.Store()

	// Create API route group
	apiGroup := s.router.Group("/api")

	// Register service routes
	api.SetupHealthRoutes(apiGroup, s.db, s.redis, s.ingest, s.breaker)
	api.SetupChannelRoutes(apiGroup, store)
	api.SetupRunRoutes(apiGroup, store.Repositories())
	api.SetupRefreshRoutes(apiGroup, api.NewRefreshHandler(s.baseCtx, s.ingest, s.redis, s.guideCache, s.config.Cache.LockTTL))

	// The guide and metrics live at the root for XMLTV clients and scrapers
	api.SetupGuideRoutes(s.router, store, s.guideCache, s.metrics)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.Router(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Str("source", s.ingest.Source()).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels any run it started
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	s.cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/api/version"
	"github.com/killallgit/media-transcript-api/internal/services/cache"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
	"github.com/killallgit/media-transcript-api/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	cfg                *config.Config
	info               version.Info
	log                zerolog.Logger
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once
	responses          *cache.MemoryCache

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server from the server section of cfg
func NewServer(cfg *config.Config, info version.Info) *Server {
	engine := gin.New()

	server := &Server{
		engine:       engine,
		cfg:          cfg,
		info:         info,
		log:          telemetry.Component("http"),
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        engine,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.ReadTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}

	return server
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	if s.dependencies == nil {
		s.dependencies = &types.Dependencies{}
	}

	s.setupMiddleware()

	state := &RouteState{
		Limiters:    s.rateLimiters,
		Stop:        s.cleanupStop,
		Initialized: &s.cleanupInitialized,
	}
	if s.cfg.Cache.Enabled {
		s.responses = cache.NewMemoryCache(s.cfg.Cache.MaxSizeMB)
		state.Cache = s.responses
	}

	return RegisterRoutes(s.engine, s.cfg, s.dependencies, s.info, state)
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(Recovery(s.log))
	s.engine.Use(RequestID())
	if s.cfg.Telemetry.Enabled {
		s.engine.Use(otelgin.Middleware(s.cfg.Telemetry.ServiceName))
	}
	s.engine.Use(AccessLog(s.log))

	if s.cfg.Security.EnableCORS {
		s.engine.Use(CORS(s.cfg.Security))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	s.stopOnce.Do(func() { close(s.cleanupStop) })
	if s.responses != nil {
		s.responses.Stop()
	}

	return s.httpServer.Shutdown(ctx)
}

package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/media-transcript-api/api/contents"
	"github.com/killallgit/media-transcript-api/api/middleware"
	"github.com/killallgit/media-transcript-api/api/health"
	"github.com/killallgit/media-transcript-api/api/transcription"
	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/api/version"
	_ "github.com/killallgit/media-transcript-api/docs/swagger"
	"github.com/killallgit/media-transcript-api/internal/services/cache"
	"github.com/killallgit/media-transcript-api/pkg/config"
)

// metadataBodyLimit caps curation request bodies
const metadataBodyLimit = 1024 * 1024

// RouteState is the middleware state owned by the server
type RouteState struct {
	Limiters    *sync.Map
	Stop        chan struct{}
	Initialized *sync.Once
	// Cache holds read responses; nil disables caching
	Cache cache.Cache
}

func (r *RouteState) rateLimit(enabled bool, rps, burst int) []gin.HandlerFunc {
	if !enabled || r == nil || r.Limiters == nil {
		return nil
	}
	return []gin.HandlerFunc{PerClientRateLimit(r.Limiters, r.Stop, r.Initialized, rps, burst)}
}

func (r *RouteState) responseCache() cache.Cache {
	if r == nil {
		return nil
	}
	return r.Cache
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, cfg *config.Config, deps *types.Dependencies, info version.Info, state *RouteState) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, info)

	// Register Swagger documentation route
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	rl := cfg.RateLimit
	responses := state.responseCache()

	processing := state.rateLimit(rl.Enabled, rl.ProcessingRPS, rl.ProcessingBurst)
	processing = append(processing, RequestSizeLimitWithSize(deps.MaxUploadSize))
	if responses != nil {
		processing = append(processing, middleware.InvalidateOnWrite(responses))
	}

	reads := state.rateLimit(rl.Enabled, rl.ReadRPS, rl.ReadBurst)
	reads = append(reads, RequestSizeLimitWithSize(metadataBodyLimit))
	if responses != nil {
		reads = append(reads,
			middleware.InvalidateOnWrite(responses),
			middleware.ResponseCache(middleware.CacheConfig{Cache: responses, DefaultTTL: cfg.Cache.TTL, Enabled: true}),
		)
	}

	v1 := engine.Group("/api/v1")

	transcriptionGroup := v1.Group("/transcriptions")
	transcriptionGroup.Use(processing...)
	transcription.RegisterRoutes(transcriptionGroup, deps)
	transcription.RegisterLegacyRoute(engine, deps, processing...)

	contentGroup := v1.Group("/contents")
	contentGroup.Use(reads...)
	contents.RegisterRoutes(contentGroup, deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  types.StatusError,
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}

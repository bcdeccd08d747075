package transcription

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
)

// RegisterRoutes registers all transcription-related routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Generate(deps))
}

// RegisterLegacyRoute keeps the path older clients post to
func RegisterLegacyRoute(router gin.IRoutes, deps *types.Dependencies, middleware ...gin.HandlerFunc) {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, Generate(deps))
	router.POST("/api/generate-transcription", handlers...)
}

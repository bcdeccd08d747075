package contents

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
)

// RegisterRoutes registers the content read and curation routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("/search", Search(deps))
	router.GET("/:id", Get(deps))
	router.PATCH("/:id/metadata", UpdateMetadata(deps))
	router.GET("/:id/runs", GetRuns(deps))
}

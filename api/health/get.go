package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
)

const pingTimeout = 2 * time.Second

// Get handles health check requests
// @Summary      Health check
// @Description  Reports database and content store connectivity plus which optional engines are configured.
// @Description  Returns 503 when a configured store does not respond.
// @Tags         health
// @Produce      json
// @Success      200 {object} types.HealthResponse
// @Failure      503 {object} types.HealthResponse
// @Router       /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil {
			deps = &types.Dependencies{}
		}

		response := types.HealthResponse{
			Status:       "healthy",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Database:     getDatabaseStatus(deps),
			Store:        getStoreStatus(c.Request.Context(), deps),
			Capabilities: deps.Capabilities,
		}

		status := http.StatusOK
		if response.Database["status"] == "unhealthy" || response.Store["status"] == "unhealthy" {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(deps *types.Dependencies) gin.H {
	if deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}

	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}

	return gin.H{"status": "healthy"}
}

// getStoreStatus pings the content store, which may live outside the database
func getStoreStatus(ctx context.Context, deps *types.Dependencies) gin.H {
	if deps.Store == nil {
		return gin.H{"status": "not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := deps.Store.Ping(ctx); err != nil {
		return gin.H{"status": "unhealthy", "backend": deps.StoreBackend, "error": err.Error()}
	}
	return gin.H{"status": "healthy", "backend": deps.StoreBackend}
}

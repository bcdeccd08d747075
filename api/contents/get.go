package contents

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
)

// Get returns one record
// @Summary      Get a transcript
// @Description  Look up a stored record by its store id or by job id.
// @Tags         contents
// @Produce      json
// @Param        id path string true "Store id or job id"
// @Success      200 {object} types.ContentResponse
// @Failure      404 {object} types.ErrorResponse "No such record"
// @Router       /api/v1/contents/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}

		rec, err := deps.ContentService.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.ContentResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Content:      rec,
		})
	}
}

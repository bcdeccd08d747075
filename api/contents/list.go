package contents

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// List returns stored records, newest first
// @Summary      List transcripts
// @Description  Page through stored content records ordered by date added, newest first.
// @Tags         contents
// @Produce      json
// @Param        limit  query int false "Page size (max 500)" default(50)
// @Param        offset query int false "Records to skip" default(0)
// @Success      200 {object} types.ContentListResponse
// @Failure      400 {object} types.ErrorResponse "Invalid paging parameters"
// @Failure      500 {object} types.ErrorResponse "Store error"
// @Router       /api/v1/contents [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}

		limit, ok := types.QueryInt(c, "limit", content.DefaultListLimit)
		if !ok {
			return
		}
		offset, ok := types.QueryInt(c, "offset", 0)
		if !ok {
			return
		}

		records, total, err := deps.ContentService.List(c.Request.Context(), content.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			types.SendError(c, apperrors.DatabaseError("list", err))
			return
		}

		types.SendSuccess(c, types.ContentListResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Contents:     records,
			Count:        len(records),
			Total:        total,
			Limit:        clampLimit(limit),
			Offset:       offset,
		})
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return content.DefaultListLimit
	case limit > content.MaxListLimit:
		return content.MaxListLimit
	default:
		return limit
	}
}

// available sends a 503 when the content store is not wired
func available(c *gin.Context, deps *types.Dependencies) bool {
	if deps == nil || deps.ContentService == nil {
		types.SendError(c, apperrors.New(apperrors.ErrCodeServiceDown, "content store not available"))
		return false
	}
	return true
}

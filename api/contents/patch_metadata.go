package contents

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/services/content"
)

// UpdateMetadata edits the curated fields of a record
// @Summary      Update transcript metadata
// @Description  Set or clear title, summary, speaker, location, category and url. Omitted fields are left
// @Description  unchanged and an empty string clears a field. keyword_language regenerates the keywords from
// @Description  the transcript in that language. Later pipeline runs for the same job keep these values.
// @Tags         contents
// @Accept       json
// @Produce      json
// @Param        id path string true "Store id or job id"
// @Param        request body types.MetadataRequest true "Fields to change"
// @Success      200 {object} types.ContentResponse
// @Failure      400 {object} types.ErrorResponse "Invalid body or unknown keyword language"
// @Failure      404 {object} types.ErrorResponse "No such record"
// @Router       /api/v1/contents/{id}/metadata [patch]
func UpdateMetadata(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}

		var req types.MetadataRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		rec, err := deps.ContentService.UpdateMetadata(c.Request.Context(), c.Param("id"), content.MetadataPatch{
			URL:             req.URL,
			Title:           req.Title,
			Summary:         req.Summary,
			Speaker:         req.Speaker,
			Location:        req.Location,
			Category:        req.Category,
			KeywordLanguage: req.KeywordLanguage,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.ContentResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Metadata updated"},
			Content:      rec,
		})
	}
}

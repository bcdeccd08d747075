package contents

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// Search finds records by transcript words or by a single field
// @Summary      Search transcripts
// @Description  With "terms", returns records whose transcript in any language contains one of the terms as a
// @Description  whole word, with the matching cues. With "field" and "query", matches one field: title, summary,
// @Description  speaker, location and category by substring, keywords by exact keyword, source_type,
// @Description  detected_language and job_id exactly, transcript by substring.
// @Tags         contents
// @Accept       json
// @Produce      json
// @Param        request body types.SearchRequest true "Search request"
// @Success      200 {object} types.TranscriptSearchResponse "Transcript word search, or types.SearchResponse for a field search"
// @Failure      400 {object} types.ErrorResponse "Invalid search"
// @Router       /api/v1/contents/search [post]
func Search(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available(c, deps) {
			return
		}

		var req types.SearchRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		ctx := c.Request.Context()
		switch {
		case len(req.Terms) > 0:
			hits, err := deps.ContentService.SearchTranscripts(ctx, req.Terms)
			if err != nil {
				types.SendError(c, err)
				return
			}
			results := types.FromTranscriptHits(hits)
			types.SendSuccess(c, types.TranscriptSearchResponse{
				BaseResponse: types.BaseResponse{Status: types.StatusOK},
				Terms:        req.Terms,
				Results:      results,
				Count:        len(results),
			})

		case req.Field != "":
			records, err := deps.ContentService.Search(ctx, req.Field, req.Query)
			if err != nil {
				types.SendError(c, err)
				return
			}
			types.SendSuccess(c, types.SearchResponse{
				BaseResponse: types.BaseResponse{Status: types.StatusOK},
				Field:        req.Field,
				Query:        req.Query,
				Contents:     records,
				Count:        len(records),
			})

		default:
			types.SendError(c, apperrors.MissingFieldError("terms").
				WithDetail("reason", "provide terms, or field and query"))
		}
	}
}

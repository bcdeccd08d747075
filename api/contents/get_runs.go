package contents

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// DefaultRunLimit caps the history returned per job
const DefaultRunLimit = 20

// GetRuns returns the processing history of a job
// @Summary      Get processing runs
// @Description  List the pipeline runs recorded for a job, newest first, including failed runs. The id may be a
// @Description  store id or a job id; runs for a job that never produced a record are found by job id.
// @Tags         contents
// @Produce      json
// @Param        id    path  string true  "Store id or job id"
// @Param        limit query int    false "Maximum runs" default(20)
// @Success      200 {object} types.RunsResponse
// @Failure      404 {object} types.ErrorResponse "No record and no runs"
// @Router       /api/v1/contents/{id}/runs [get]
func GetRuns(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Runs == nil {
			types.SendError(c, apperrors.New(apperrors.ErrCodeServiceDown, "run history not available"))
			return
		}

		limit, ok := types.QueryInt(c, "limit", DefaultRunLimit)
		if !ok {
			return
		}

		ctx := c.Request.Context()
		id := strings.TrimSpace(c.Param("id"))
		jobID := id
		found := false
		if deps.ContentService != nil {
			rec, err := deps.ContentService.Get(ctx, id)
			switch {
			case err == nil:
				jobID = rec.JobID
				found = true
			case !errors.Is(err, content.ErrNotFound):
				types.SendError(c, err)
				return
			}
		}

		list, err := deps.Runs.ListByJob(ctx, jobID, limit)
		if err != nil {
			types.SendError(c, apperrors.DatabaseError("list runs", err))
			return
		}
		if len(list) == 0 && !found {
			types.SendError(c, apperrors.NotFound("job", id))
			return
		}

		runs := types.FromRunList(list)
		types.SendSuccess(c, types.RunsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			JobID:        jobID,
			Runs:         runs,
			Count:        len(runs),
		})
	}
}

package transcription

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/media-transcript-api/api/types"
	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// upload form fields, in lookup order
var fileFields = []string{"source", "file"}

// Generate runs the transcription pipeline synchronously
// @Summary      Transcribe a video
// @Description  Acquire a YouTube video or an uploaded mp4, transcribe its audio, translate the transcript
// @Description  into the other configured languages and store the result keyed by job id. Send either a JSON
// @Description  body or a multipart form with the video in the "source" (or "file") field. The request stays
// @Description  open until the whole run finishes. Running the same job twice updates the stored record.
// @Tags         transcriptions
// @Accept       json,mpfd
// @Produce      json
// @Param        request body types.TranscriptionRequest false "JSON request"
// @Param        source formData file false "mp4 upload"
// @Param        source_type formData string false "Must be mp4 for uploads" default(mp4)
// @Param        generate_metadata formData boolean false "Generate title, summary and keywords"
// @Param        local_transcription formData boolean false "Use the local whisper engine"
// @Success      200 {object} types.TranscriptionResponse "Transcript stored"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Failure      404 {object} types.ErrorResponse "Referenced file not found"
// @Failure      413 {object} types.ErrorResponse "Upload or audio too large"
// @Failure      415 {object} types.ErrorResponse "Unsupported content type or file"
// @Failure      500 {object} types.ErrorResponse "Internal error"
// @Failure      502 {object} types.ErrorResponse "Download, transcription or extraction failed"
// @Router       /api/v1/transcriptions [post]
func Generate(deps *types.Dependencies) gin.HandlerFunc {
	log := telemetry.Component("api.transcription")

	return func(c *gin.Context) {
		if deps == nil || deps.Pipeline == nil {
			types.SendError(c, apperrors.New(apperrors.ErrCodeServiceDown, "transcription pipeline not available"))
			return
		}

		req, err := parseRequest(c)
		if err != nil {
			types.LogError(log, err, "rejected transcription request")
			types.SendError(c, err)
			return
		}

		if req.Upload != nil {
			if closer, ok := req.Upload.Content.(io.Closer); ok {
				defer closer.Close()
			}
		}

		result, err := deps.Pipeline.Run(c.Request.Context(), *req)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.FromResult(result))
	}
}

func parseRequest(c *gin.Context) (*pipeline.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case gin.MIMEJSON:
		return parseJSON(c)
	case gin.MIMEMultipartPOSTForm:
		return parseMultipart(c)
	default:
		return nil, apperrors.UnsupportedMediaError(mediaType).
			WithDetail("reason", "request must be JSON or multipart/form-data")
	}
}

func parseJSON(c *gin.Context) (*pipeline.Request, error) {
	var body types.TranscriptionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body")
	}

	sourceType := strings.ToLower(strings.TrimSpace(body.SourceType))
	source := strings.TrimSpace(body.Source)
	if sourceType == "" {
		return nil, apperrors.MissingFieldError("source_type")
	}
	if source == "" {
		return nil, apperrors.MissingFieldError("source")
	}

	req := &pipeline.Request{
		SourceType:         models.SourceType(sourceType),
		GenerateMetadata:   bool(body.GenerateMetadata),
		LocalTranscription: bool(body.LocalTranscription),
	}
	switch req.SourceType {
	case models.SourceYouTube:
		req.Remote = &pipeline.RemoteSource{URL: source}
	case models.SourceMP4:
		req.Upload = &pipeline.UploadedFile{LocalPath: source}
	}
	return req, nil
}

func parseMultipart(c *gin.Context) (*pipeline.Request, error) {
	sourceType := strings.ToLower(strings.TrimSpace(c.DefaultPostForm("source_type", string(models.SourceMP4))))
	if models.SourceType(sourceType) != models.SourceMP4 {
		return nil, apperrors.ValidationError("source_type", "only mp4 is supported for file uploads")
	}

	var (
		header *multipart.FileHeader
		err    error
	)
	for _, field := range fileFields {
		if header, err = c.FormFile(field); err == nil {
			break
		}
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, apperrors.MissingFieldError("source")
	}
	if header.Filename == "" {
		return nil, apperrors.ValidationError("source", "uploaded file has no filename")
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to open upload")
	}

	return &pipeline.Request{
		SourceType:         models.SourceMP4,
		Upload:             &pipeline.UploadedFile{Filename: header.Filename, Content: file},
		GenerateMetadata:   types.ParseFlag(c.PostForm("generate_metadata")),
		LocalTranscription: types.ParseFlag(c.PostForm("local_transcription")),
	}, nil
}

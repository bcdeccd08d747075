package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/acquisition"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/transcription"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// errInconsistent marks broken internal invariants, such as a transcript
// file that vanished right after it was written
var errInconsistent = errors.New("internal inconsistency")

// classify turns a stage failure into the AppError returned to callers
func classify(err error, stage Stage) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.WithDetail("stage", string(stage))
	}

	var apiErr *transcription.APIError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, acquisition.ErrSourceNotFound):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeNotFound, "source file not found")
	case errors.Is(err, acquisition.ErrOutsideUploadDir):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeValidation, "file path is outside the upload directory")
	case errors.Is(err, acquisition.ErrUnsupportedFile):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeUnsupportedMedia, "only mp4 video uploads are supported")
	case errors.Is(err, acquisition.ErrNoAudio):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeValidation, "the video has no audio track to transcribe")
	case errors.Is(err, acquisition.ErrUploadTooLarge):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "upload exceeds the size limit")
		appErr.HTTPCode = http.StatusRequestEntityTooLarge
	case errors.Is(err, acquisition.ErrDownloadFailed):
		appErr = apperrors.ExternalServiceError("yt-dlp", err)
	case errors.Is(err, acquisition.ErrExtractionFailed):
		appErr = apperrors.ExternalServiceError("ffmpeg", err)
	case errors.Is(err, transcription.ErrMissingCredentials):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeConfigRequired, "transcription API key is not configured")
	case errors.Is(err, transcription.ErrModeUnavailable):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeConfigRequired, "requested transcription mode is not configured")
	case errors.Is(err, transcription.ErrFileTooLarge):
		appErr = apperrors.Wrap(err, apperrors.ErrCodePayloadTooLarge, "audio exceeds the transcription size limit")
	case errors.Is(err, transcription.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		appErr = apperrors.TimeoutError(string(stage), "deadline").WithCause(err)
	case errors.As(err, &apiErr):
		code := apperrors.ErrCodeExternalService
		if apiErr.StatusCode == http.StatusTooManyRequests {
			code = apperrors.ErrCodeAPIRateLimit
		}
		appErr = apperrors.Wrap(err, code, "transcription API request failed")
	case errors.Is(err, transcription.ErrEngineFailed):
		appErr = apperrors.ExternalServiceError("whisper", err)
	case errors.Is(err, content.ErrNotFound):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInconsistency, "stored record disappeared")
	case errors.Is(err, errInconsistent):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInconsistency, "internal inconsistency")
	case errors.Is(err, context.Canceled):
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInternal, "run was cancelled")
	case stage == StageUpserting || stage == StageAssembling:
		appErr = apperrors.DatabaseError(string(stage), err)
	default:
		appErr = apperrors.Wrap(err, apperrors.ErrCodeInternal, "processing failed")
	}
	return appErr.WithDetail("stage", string(stage))
}

// errorType maps an AppError onto the run log classification
func errorType(err *apperrors.AppError) models.RunErrorType {
	switch err.Kind() {
	case apperrors.KindClient:
		return models.ErrorTypeClient
	case apperrors.KindNotFound:
		return models.ErrorTypeNotFound
	case apperrors.KindUpstream:
		return models.ErrorTypeUpstream
	default:
		return models.ErrorTypeInternal
	}
}

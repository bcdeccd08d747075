package types

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/killallgit/media-transcript-api/internal/services/content"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// QueryInt reads an integer query parameter, falling back to def when it is
// absent. It sends a 400 and returns false when the value is malformed.
func QueryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		SendError(c, apperrors.ValidationError(name, "must be a non-negative integer"))
		return 0, false
	}
	return value, true
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		SendError(c, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body"))
		return false
	}
	return true
}

// SendError writes err as an ErrorResponse with the status its kind maps to
func SendError(c *gin.Context, err error) {
	appErr := toAppError(err)
	_ = c.Error(err)

	status := appErr.GetHTTPCode()
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:  StatusError,
		Kind:    appErr.Kind(),
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// toAppError maps read-path sentinels onto the error taxonomy
func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "request body too large")
	case errors.Is(err, content.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "content not found")
	case errors.Is(err, content.ErrUnsupportedField),
		errors.Is(err, content.ErrEmptyQuery),
		errors.Is(err, content.ErrLanguageNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "internal server error")
	}
}

// LogError logs a handler failure at a level matching its kind
func LogError(log zerolog.Logger, err error, msg string) {
	event := log.Error()
	if k := toAppError(err).Kind(); k == apperrors.KindClient || k == apperrors.KindNotFound {
		event = log.Warn()
	}
	event.Err(err).Msg(msg)
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

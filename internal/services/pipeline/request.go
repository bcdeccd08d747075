package pipeline

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/acquisition"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

// RemoteSource is a video addressed by URL
type RemoteSource struct {
	URL string `json:"url" validate:"required,http_url"`
}

// UploadedFile is a video supplied by the caller, either as bytes or as a
// path already inside the upload directory
type UploadedFile struct {
	Filename  string    `json:"filename" validate:"required_without=LocalPath"`
	Content   io.Reader `json:"-" validate:"-"`
	LocalPath string    `json:"local_path"`
}

// Request is one validated pipeline invocation. Exactly one of Remote and
// Upload is set.
type Request struct {
	SourceType         models.SourceType `json:"source_type" validate:"required,oneof=youtube mp4"`
	Remote             *RemoteSource     `json:"remote,omitempty"`
	Upload             *UploadedFile     `json:"upload,omitempty"`
	GenerateMetadata   bool              `json:"generate_metadata"`
	LocalTranscription bool              `json:"local_transcription"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks the request shape. It returns a client-error AppError.
func (r *Request) Validate() error {
	if err := getValidator().Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.ValidationError(fieldName(fe), describe(fe))
		}
		return apperrors.New(apperrors.ErrCodeInvalidInput, err.Error())
	}

	switch {
	case r.Remote != nil && r.Upload != nil:
		return apperrors.ValidationError("source", "provide either a URL or a file, not both")
	case r.Remote == nil && r.Upload == nil:
		return apperrors.MissingFieldError("source")
	}

	switch r.SourceType {
	case models.SourceYouTube:
		if r.Remote == nil {
			return apperrors.ValidationError("source_type", "youtube requires a URL source")
		}
	case models.SourceMP4:
		if r.Upload == nil {
			return apperrors.ValidationError("source_type", "mp4 requires an uploaded file")
		}
		if r.Upload.Content == nil && r.Upload.LocalPath == "" {
			return apperrors.MissingFieldError("file")
		}
	}
	return nil
}

// Source converts the request into an acquisition source
func (r *Request) Source() acquisition.Source {
	src := acquisition.Source{Type: r.SourceType}
	if r.Remote != nil {
		src.URL = r.Remote.URL
	}
	if r.Upload != nil {
		src.Filename = r.Upload.Filename
		src.Content = r.Upload.Content
		src.LocalPath = r.Upload.LocalPath
	}
	return src
}

// SourceLocation is the human readable origin stored on the record
func (r *Request) SourceLocation() string {
	switch {
	case r.Remote != nil:
		return r.Remote.URL
	case r.Upload != nil && r.Upload.Filename != "":
		return r.Upload.Filename
	case r.Upload != nil:
		return r.Upload.LocalPath
	default:
		return ""
	}
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "http_url":
		return "must be an http or https URL"
	default:
		return "is invalid"
	}
}

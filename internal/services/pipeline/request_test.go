package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/killallgit/media-transcript-api/internal/models"
	apperrors "github.com/killallgit/media-transcript-api/pkg/errors"
)

func TestRequest_Validate(t *testing.T) {
	upload := &UploadedFile{Filename: "clip.mp4", Content: strings.NewReader("x")}

	tests := []struct {
		name    string
		req     Request
		field   string
		wantErr bool
	}{
		{
			name: "remote url",
			req:  Request{SourceType: models.SourceYouTube, Remote: &RemoteSource{URL: "https://www.youtube.com/watch?v=abc"}},
		},
		{
			name: "uploaded file",
			req:  Request{SourceType: models.SourceMP4, Upload: upload},
		},
		{
			name: "server local file",
			req:  Request{SourceType: models.SourceMP4, Upload: &UploadedFile{LocalPath: "talks/a.mp4"}},
		},
		{
			name:    "unknown source type",
			req:     Request{SourceType: "vimeo", Remote: &RemoteSource{URL: "https://vimeo.com/1"}},
			field:   "source_type",
			wantErr: true,
		},
		{
			name:    "missing source type",
			req:     Request{Upload: upload},
			field:   "source_type",
			wantErr: true,
		},
		{
			name:    "non http url",
			req:     Request{SourceType: models.SourceYouTube, Remote: &RemoteSource{URL: "ftp://example.com/a"}},
			field:   "remote.url",
			wantErr: true,
		},
		{
			name:    "both sources",
			req:     Request{SourceType: models.SourceMP4, Remote: &RemoteSource{URL: "https://youtu.be/x"}, Upload: upload},
			field:   "source",
			wantErr: true,
		},
		{
			name:    "no source",
			req:     Request{SourceType: models.SourceMP4},
			field:   "source",
			wantErr: true,
		},
		{
			name:    "youtube with a file",
			req:     Request{SourceType: models.SourceYouTube, Upload: upload},
			field:   "source_type",
			wantErr: true,
		},
		{
			name:    "mp4 with a url",
			req:     Request{SourceType: models.SourceMP4, Remote: &RemoteSource{URL: "https://youtu.be/x"}},
			field:   "source_type",
			wantErr: true,
		},
		{
			name:    "upload without content",
			req:     Request{SourceType: models.SourceMP4, Upload: &UploadedFile{Filename: "a.mp4"}},
			field:   "file",
			wantErr: true,
		},
		{
			name:    "upload without name or path",
			req:     Request{SourceType: models.SourceMP4, Upload: &UploadedFile{Content: strings.NewReader("x")}},
			field:   "upload.filename",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, apperrors.KindClient, apperrors.Classify(err))
			appErr, _ := apperrors.As(err)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestRequest_Source(t *testing.T) {
	req := Request{SourceType: models.SourceMP4, Upload: &UploadedFile{Filename: "a.mp4", LocalPath: "x/a.mp4"}}
	src := req.Source()
	assert.Equal(t, models.SourceMP4, src.Type)
	assert.Equal(t, "x/a.mp4", src.LocalPath)
	assert.Equal(t, "a.mp4", req.SourceLocation())

	remote := Request{SourceType: models.SourceYouTube, Remote: &RemoteSource{URL: "https://youtu.be/x"}}
	assert.Equal(t, "https://youtu.be/x", remote.Source().URL)
	assert.Equal(t, "https://youtu.be/x", remote.SourceLocation())
}

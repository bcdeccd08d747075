package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/media-transcript-api/internal/models"
)

func TestProcessCommandFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "no source", args: []string{"process"}, wantErr: true},
		{name: "both sources", args: []string{"process", "--youtube", "https://youtu.be/x", "--file", "a.mp4"}, wantErr: true},
		{name: "missing file", args: []string{"process", "--file", filepath.Join(t.TempDir(), "absent.mp4")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			}
		})
	}
}

func TestBuildProcessRequest(t *testing.T) {
	t.Cleanup(func() {
		processYouTube, processFile, processMetadata, processLocal = "", "", false, false
	})

	t.Run("youtube", func(t *testing.T) {
		processYouTube, processFile, processMetadata, processLocal = "https://youtu.be/x", "", true, false

		req, f, err := buildProcessRequest()
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.Equal(t, models.SourceYouTube, req.SourceType)
		require.NotNil(t, req.Remote)
		assert.Equal(t, "https://youtu.be/x", req.Remote.URL)
		assert.True(t, req.GenerateMetadata)
		assert.NoError(t, req.Validate())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "talk.mp4")
		require.NoError(t, os.WriteFile(path, []byte("video"), 0644))
		processYouTube, processFile, processMetadata, processLocal = "", path, false, true

		req, f, err := buildProcessRequest()
		require.NoError(t, err)
		require.NotNil(t, f)
		defer f.Close()

		assert.Equal(t, models.SourceMP4, req.SourceType)
		require.NotNil(t, req.Upload)
		assert.Equal(t, "talk.mp4", req.Upload.Filename)
		assert.True(t, req.LocalTranscription)

		data, err := io.ReadAll(req.Upload.Content)
		require.NoError(t, err)
		assert.Equal(t, "video", string(data))
	})
}

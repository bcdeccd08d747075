package acquisition

import (
	"context"
	"io"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/ffmpeg"
	"github.com/killallgit/media-transcript-api/pkg/ytdlp"
)

// Source describes the media to acquire. Exactly one of URL, Content or
// LocalPath is used, depending on Type.
type Source struct {
	Type      models.SourceType
	URL       string
	Filename  string    // original upload name, kept for display
	Content   io.Reader // uploaded bytes
	LocalPath string    // file already on the server, under the upload directory
}

// Scratch hands out paths inside the run's temporary workspace and
// remembers them for cleanup.
type Scratch interface {
	Path(name string) string
}

// Asset is the local audio ready for transcription
type Asset struct {
	AudioPath    string
	TitleBase    string // sanitized title used for the job id
	UploadedPath string // saved copy of an uploaded video, if any
}

// Acquirer resolves a source into a local audio asset
type Acquirer interface {
	Acquire(ctx context.Context, src Source, timestamp string, scratch Scratch) (*Asset, error)
}

// Downloader fetches the audio track of a remote video
type Downloader interface {
	DownloadAudio(ctx context.Context, url, outputBase string) (*ytdlp.Download, error)
}

// AudioExtractor pulls the audio track out of a video file
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string, opts ffmpeg.ExtractOptions) error
}

// AudioProber checks that a media file carries an audio stream
type AudioProber interface {
	RequireAudio(ctx context.Context, filePath string) (*ffmpeg.AudioMetadata, error)
}

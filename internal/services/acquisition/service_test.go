package acquisition

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/ffmpeg"
	"github.com/killallgit/media-transcript-api/pkg/ytdlp"
)

const ts = "20240101_120000"

// mp4Header is the start of an ISO base media file with the isom brand
var mp4Header = append([]byte("\x00\x00\x00\x20ftypisom\x00\x00\x02\x00isomiso2avc1mp41"), make([]byte, 64)...)

type MockDownloader struct {
	mock.Mock
}

func (m *MockDownloader) DownloadAudio(ctx context.Context, url, outputBase string) (*ytdlp.Download, error) {
	args := m.Called(ctx, url, outputBase)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ytdlp.Download), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractAudio(ctx context.Context, inputPath, outputPath string, opts ffmpeg.ExtractOptions) error {
	args := m.Called(ctx, inputPath, outputPath, opts)
	return args.Error(0)
}

type MockProber struct {
	mock.Mock
}

func (m *MockProber) RequireAudio(ctx context.Context, filePath string) (*ffmpeg.AudioMetadata, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ffmpeg.AudioMetadata), args.Error(1)
}

// dirScratch is a Scratch rooted at a test directory
type dirScratch struct {
	dir   string
	paths []string
}

func (s *dirScratch) Path(name string) string {
	p := filepath.Join(s.dir, name)
	s.paths = append(s.paths, p)
	return p
}

func writeOutput(args mock.Arguments) {
	_ = os.WriteFile(args.String(2), []byte("mp3"), 0644)
}

func TestAcquireRemote(t *testing.T) {
	ctx := context.Background()
	scratch := &dirScratch{dir: t.TempDir()}
	base := filepath.Join(scratch.dir, "youtube_download_"+ts)

	downloader := new(MockDownloader)
	downloader.On("DownloadAudio", ctx, "https://youtu.be/abc", base).
		Run(func(args mock.Arguments) {
			_ = os.WriteFile(base+".mp3", []byte("mp3"), 0644)
		}).
		Return(&ytdlp.Download{Path: base + ".mp3", Title: "Swayambhu: A Story?"}, nil)

	svc := NewService(downloader, new(MockExtractor), t.TempDir(), 0)
	asset, err := svc.Acquire(ctx, Source{Type: models.SourceYouTube, URL: "https://youtu.be/abc"}, ts, scratch)
	require.NoError(t, err)

	assert.Equal(t, "swayambhu_a_story", asset.TitleBase)
	assert.Equal(t, filepath.Join(scratch.dir, "swayambhu_a_story_"+ts+".mp3"), asset.AudioPath)
	assert.FileExists(t, asset.AudioPath)
	assert.NoFileExists(t, base+".mp3")
	assert.Contains(t, scratch.paths, asset.AudioPath)
	assert.Empty(t, asset.UploadedPath)
	downloader.AssertExpectations(t)
}

func TestAcquireRemoteFailure(t *testing.T) {
	ctx := context.Background()
	scratch := &dirScratch{dir: t.TempDir()}

	downloader := new(MockDownloader)
	downloader.On("DownloadAudio", ctx, "https://youtu.be/gone", mock.Anything).
		Return(nil, &ytdlp.DownloadError{URL: "https://youtu.be/gone", Err: errors.New("exit status 1")})

	svc := NewService(downloader, new(MockExtractor), t.TempDir(), 0)
	_, err := svc.Acquire(ctx, Source{Type: models.SourceYouTube, URL: "https://youtu.be/gone"}, ts, scratch)

	assert.ErrorIs(t, err, ErrDownloadFailed)
	var dlErr *ytdlp.DownloadError
	assert.True(t, errors.As(err, &dlErr))
}

func TestAcquireUpload(t *testing.T) {
	ctx := context.Background()
	scratch := &dirScratch{dir: t.TempDir()}
	videoPath := filepath.Join(scratch.dir, "my_talk_"+ts+".mp4")
	audioPath := filepath.Join(scratch.dir, "my_talk_"+ts+".mp3")

	extractor := new(MockExtractor)
	extractor.On("ExtractAudio", ctx, videoPath, audioPath, ffmpeg.DefaultExtractOptions()).
		Run(writeOutput).Return(nil)

	svc := NewService(new(MockDownloader), extractor, t.TempDir(), 0)
	asset, err := svc.Acquire(ctx, Source{
		Type:     models.SourceMP4,
		Filename: "My Talk.MP4",
		Content:  bytes.NewReader(mp4Header),
	}, ts, scratch)
	require.NoError(t, err)

	assert.Equal(t, "my_talk", asset.TitleBase)
	assert.Equal(t, audioPath, asset.AudioPath)
	assert.Equal(t, videoPath, asset.UploadedPath)

	saved, err := os.ReadFile(videoPath)
	require.NoError(t, err)
	assert.Equal(t, mp4Header, saved)
	assert.Subset(t, scratch.paths, []string{videoPath, audioPath})
	extractor.AssertExpectations(t)
}

func TestAcquireUploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		limit   int64
		wantErr error
	}{
		{
			name:    "wrong extension",
			src:     Source{Type: models.SourceMP4, Filename: "talk.mov", Content: bytes.NewReader(mp4Header)},
			wantErr: ErrUnsupportedFile,
		},
		{
			name:    "not a video",
			src:     Source{Type: models.SourceMP4, Filename: "talk.mp4", Content: strings.NewReader("plain text pretending to be video")},
			wantErr: ErrUnsupportedFile,
		},
		{
			name:    "too large",
			src:     Source{Type: models.SourceMP4, Filename: "talk.mp4", Content: bytes.NewReader(mp4Header)},
			limit:   16,
			wantErr: ErrUploadTooLarge,
		},
		{
			name:    "missing content",
			src:     Source{Type: models.SourceMP4, Filename: "talk.mp4"},
			wantErr: ErrSourceNotFound,
		},
		{
			name:    "unknown source type",
			src:     Source{Type: "vimeo"},
			wantErr: ErrUnsupportedFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := new(MockExtractor)
			scratch := &dirScratch{dir: t.TempDir()}
			svc := NewService(new(MockDownloader), extractor, t.TempDir(), tt.limit)

			_, err := svc.Acquire(context.Background(), tt.src, ts, scratch)
			assert.ErrorIs(t, err, tt.wantErr)

			entries, _ := os.ReadDir(scratch.dir)
			assert.Empty(t, entries, "no partial files left behind")
			extractor.AssertNotCalled(t, "ExtractAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAcquireUploadExtractionFailure(t *testing.T) {
	ctx := context.Background()
	scratch := &dirScratch{dir: t.TempDir()}

	extractor := new(MockExtractor)
	extractor.On("ExtractAudio", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(ffmpeg.NewProcessingError("audio_extraction", "x.mp4", errors.New("exit status 1"), ""))

	svc := NewService(new(MockDownloader), extractor, t.TempDir(), 0)
	_, err := svc.Acquire(ctx, Source{Type: models.SourceMP4, Filename: "x.mp4", Content: bytes.NewReader(mp4Header)}, ts, scratch)

	assert.ErrorIs(t, err, ErrExtractionFailed)
	var procErr *ffmpeg.ProcessingError
	assert.True(t, errors.As(err, &procErr))
}

func TestAcquireProbesForAudio(t *testing.T) {
	ctx := context.Background()
	src := Source{Type: models.SourceMP4, Filename: "talk.mp4"}

	t.Run("video with audio is extracted", func(t *testing.T) {
		scratch := &dirScratch{dir: t.TempDir()}
		videoPath := filepath.Join(scratch.dir, "talk_"+ts+".mp4")

		prober := new(MockProber)
		prober.On("RequireAudio", ctx, videoPath).Return(&ffmpeg.AudioMetadata{HasAudio: true, Codec: "aac"}, nil)
		extractor := new(MockExtractor)
		extractor.On("ExtractAudio", ctx, videoPath, mock.Anything, mock.Anything).Run(writeOutput).Return(nil)

		svc := NewService(new(MockDownloader), extractor, t.TempDir(), 0, WithProber(prober))
		src.Content = bytes.NewReader(mp4Header)
		_, err := svc.Acquire(ctx, src, ts, scratch)
		require.NoError(t, err)
		prober.AssertExpectations(t)
		extractor.AssertExpectations(t)
	})

	t.Run("silent video is rejected before extraction", func(t *testing.T) {
		scratch := &dirScratch{dir: t.TempDir()}
		prober := new(MockProber)
		prober.On("RequireAudio", ctx, mock.Anything).
			Return(nil, ffmpeg.NewProcessingError("metadata_validation", "talk.mp4", ffmpeg.ErrNoAudioStream, ""))
		extractor := new(MockExtractor)

		svc := NewService(new(MockDownloader), extractor, t.TempDir(), 0, WithProber(prober))
		src.Content = bytes.NewReader(mp4Header)
		_, err := svc.Acquire(ctx, src, ts, scratch)
		assert.ErrorIs(t, err, ErrNoAudio)
		assert.ErrorIs(t, err, ffmpeg.ErrNoAudioStream)
		extractor.AssertNotCalled(t, "ExtractAudio", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("probe failure is an extraction failure", func(t *testing.T) {
		prober := new(MockProber)
		prober.On("RequireAudio", ctx, mock.Anything).
			Return(nil, ffmpeg.NewProcessingError("metadata_extraction", "talk.mp4", errors.New("exit status 1"), ""))

		svc := NewService(new(MockDownloader), new(MockExtractor), t.TempDir(), 0, WithProber(prober))
		src.Content = bytes.NewReader(mp4Header)
		_, err := svc.Acquire(ctx, src, ts, &dirScratch{dir: t.TempDir()})
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.NotErrorIs(t, err, ErrNoAudio)
	})
}

func TestAcquireLocal(t *testing.T) {
	ctx := context.Background()
	uploadDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "Field Recording.mp4"), mp4Header, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "notes.mp4"), []byte("not a video at all"), 0644))
	outside := filepath.Join(t.TempDir(), "outside.mp4")
	require.NoError(t, os.WriteFile(outside, mp4Header, 0644))

	t.Run("relative path inside upload dir", func(t *testing.T) {
		scratch := &dirScratch{dir: t.TempDir()}
		extractor := new(MockExtractor)
		extractor.On("ExtractAudio", ctx, filepath.Join(uploadDir, "Field Recording.mp4"), mock.Anything, mock.Anything).
			Run(writeOutput).Return(nil)

		svc := NewService(new(MockDownloader), extractor, uploadDir, 0)
		asset, err := svc.Acquire(ctx, Source{Type: models.SourceMP4, LocalPath: "Field Recording.mp4"}, ts, scratch)
		require.NoError(t, err)
		assert.Equal(t, "field_recording", asset.TitleBase)
		assert.Empty(t, asset.UploadedPath, "server files are never owned by the run")
	})

	errorCases := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", "absent.mp4", ErrSourceNotFound},
		{"escapes upload dir", "../outside.mp4", ErrOutsideUploadDir},
		{"absolute outside", outside, ErrOutsideUploadDir},
		{"not a video", "notes.mp4", ErrUnsupportedFile},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(new(MockDownloader), new(MockExtractor), uploadDir, 0)
			_, err := svc.Acquire(ctx, Source{Type: models.SourceMP4, LocalPath: tc.path}, ts, &dirScratch{dir: t.TempDir()})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

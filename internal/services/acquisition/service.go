package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/rs/zerolog"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/telemetry"
	"github.com/killallgit/media-transcript-api/pkg/ffmpeg"
	"github.com/killallgit/media-transcript-api/pkg/naming"
)

var (
	// ErrSourceNotFound means a referenced local file does not exist
	ErrSourceNotFound = errors.New("source file not found")
	// ErrUnsupportedFile means the upload is not an mp4 video
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrUploadTooLarge means the upload exceeded the configured limit
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	// ErrOutsideUploadDir means a local path escapes the upload directory
	ErrOutsideUploadDir = errors.New("path is outside the upload directory")
	// ErrDownloadFailed wraps remote acquisition failures
	ErrDownloadFailed = errors.New("download failed")
	// ErrExtractionFailed wraps audio extraction failures
	ErrExtractionFailed = errors.New("audio extraction failed")
	// ErrNoAudio means the video has no audio track to transcribe
	ErrNoAudio = errors.New("video has no audio track")
)

const (
	videoExt = ".mp4"
	audioExt = ".mp3"

	// enough header bytes for every container matcher
	sniffLen = 262
)

// Service implements Acquirer with yt-dlp and ffmpeg
type Service struct {
	downloader    Downloader
	extractor     AudioExtractor
	prober        AudioProber
	extractOpts   ffmpeg.ExtractOptions
	uploadDir     string
	maxUploadSize int64
	log           zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithProber checks videos for an audio stream before extraction
func WithProber(p AudioProber) Option {
	return func(s *Service) {
		s.prober = p
	}
}

// NewService creates an acquisition service. maxUploadSize <= 0 disables
// the upload limit.
func NewService(downloader Downloader, extractor AudioExtractor, uploadDir string, maxUploadSize int64, opts ...Option) *Service {
	s := &Service{
		downloader:    downloader,
		extractor:     extractor,
		extractOpts:   ffmpeg.DefaultExtractOptions(),
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
		log:           telemetry.Component("acquisition"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire resolves src into local audio. Every file it creates lives at a
// path handed out by scratch.
func (s *Service) Acquire(ctx context.Context, src Source, timestamp string, scratch Scratch) (*Asset, error) {
	switch src.Type {
	case models.SourceYouTube:
		return s.acquireRemote(ctx, src.URL, timestamp, scratch)
	case models.SourceMP4:
		if src.LocalPath != "" {
			return s.acquireLocal(ctx, src.LocalPath, timestamp, scratch)
		}
		return s.acquireUpload(ctx, src, timestamp, scratch)
	default:
		return nil, fmt.Errorf("%w: source type %q", ErrUnsupportedFile, src.Type)
	}
}

func (s *Service) acquireRemote(ctx context.Context, url, timestamp string, scratch Scratch) (*Asset, error) {
	base := scratch.Path("youtube_download_" + timestamp)
	// yt-dlp decides the intermediate extension; register the final name
	scratch.Path(filepath.Base(base) + audioExt)

	s.log.Info().Str("url", url).Msg("downloading remote audio")
	dl, err := s.downloader.DownloadAudio(ctx, url, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	title := naming.Sanitize(dl.Title)
	final := scratch.Path(naming.FileName(title, timestamp, audioExt))
	if err := os.Rename(dl.Path, final); err != nil {
		_ = os.Remove(dl.Path)
		return nil, fmt.Errorf("%w: renaming download: %w", ErrDownloadFailed, err)
	}

	s.log.Info().Str("title", dl.Title).Str("audio", final).Msg("remote audio ready")
	return &Asset{AudioPath: final, TitleBase: title}, nil
}

func (s *Service) acquireUpload(ctx context.Context, src Source, timestamp string, scratch Scratch) (*Asset, error) {
	if src.Content == nil {
		return nil, fmt.Errorf("%w: no upload content", ErrSourceNotFound)
	}
	if !strings.EqualFold(filepath.Ext(src.Filename), videoExt) {
		return nil, fmt.Errorf("%w: %q is not an mp4 file", ErrUnsupportedFile, src.Filename)
	}

	title := naming.Sanitize(strings.TrimSuffix(filepath.Base(src.Filename), filepath.Ext(src.Filename)))
	videoPath := scratch.Path(naming.FileName(title, timestamp, videoExt))

	if err := s.saveUpload(src.Content, videoPath); err != nil {
		_ = os.Remove(videoPath)
		return nil, err
	}

	audio, err := s.extract(ctx, videoPath, title, timestamp, scratch)
	if err != nil {
		return nil, err
	}
	return &Asset{AudioPath: audio, TitleBase: title, UploadedPath: videoPath}, nil
}

func (s *Service) acquireLocal(ctx context.Context, path, timestamp string, scratch Scratch) (*Asset, error) {
	resolved, err := s.resolveLocal(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(resolved), videoExt) {
		return nil, fmt.Errorf("%w: %q is not an mp4 file", ErrUnsupportedFile, filepath.Base(resolved))
	}
	if err := sniffVideoFile(resolved); err != nil {
		return nil, err
	}

	title := naming.Sanitize(strings.TrimSuffix(filepath.Base(resolved), filepath.Ext(resolved)))
	audio, err := s.extract(ctx, resolved, title, timestamp, scratch)
	if err != nil {
		return nil, err
	}
	return &Asset{AudioPath: audio, TitleBase: title}, nil
}

func (s *Service) extract(ctx context.Context, videoPath, title, timestamp string, scratch Scratch) (string, error) {
	if s.prober != nil {
		meta, err := s.prober.RequireAudio(ctx, videoPath)
		switch {
		case errors.Is(err, ffmpeg.ErrNoAudioStream):
			return "", fmt.Errorf("%w: %w", ErrNoAudio, err)
		case err != nil:
			return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		s.log.Debug().Str("codec", meta.Codec).Float64("duration", meta.Duration).Msg("audio stream found")
	}

	audioPath := scratch.Path(naming.FileName(title, timestamp, audioExt))

	s.log.Debug().Str("video", videoPath).Str("audio", audioPath).Msg("extracting audio")
	if err := s.extractor.ExtractAudio(ctx, videoPath, audioPath, s.extractOpts); err != nil {
		_ = os.Remove(audioPath)
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return audioPath, nil
}

// resolveLocal confines path to the upload directory
func (s *Service) resolveLocal(path string) (string, error) {
	root, err := filepath.Abs(s.uploadDir)
	if err != nil {
		return "", fmt.Errorf("resolving upload directory: %w", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideUploadDir, path)
	}

	info, err := os.Stat(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}
	return candidate, nil
}

// saveUpload streams the upload to dst, enforcing the size limit and
// checking the container signature from the first bytes.
func (s *Service) saveUpload(content io.Reader, dst string) error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]
	if !filetype.IsVideo(head) {
		return fmt.Errorf("%w: content is not a video container", ErrUnsupportedFile)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	reader := io.MultiReader(bytes.NewReader(head), content)
	if s.maxUploadSize > 0 {
		reader = io.LimitReader(reader, s.maxUploadSize+1)
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}
	if s.maxUploadSize > 0 && written > s.maxUploadSize {
		return fmt.Errorf("%w: more than %d bytes", ErrUploadTooLarge, s.maxUploadSize)
	}
	return f.Close()
}

func sniffVideoFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)
	if !filetype.IsVideo(head[:n]) {
		return fmt.Errorf("%w: %s is not a video container", ErrUnsupportedFile, filepath.Base(path))
	}
	return nil
}

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}

	return nil
}

// ExtractAudio writes the audio track of a video file to an mp3 at
// outputPath. A partial output file is removed on failure.
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string, opts ExtractOptions) error {
	if _, err := os.Stat(inputPath); err != nil {
		return NewProcessingError("audio_extraction", inputPath, err, "")
	}

	args := []string{
		"-i", inputPath,
		"-vn",
		"-acodec", opts.Codec,
		"-ar", strconv.Itoa(opts.SampleRate),
		"-ac", strconv.Itoa(opts.Channels),
		"-loglevel", "error",
		"-y",
		outputPath,
	}

	if err := f.run(ctx, "audio_extraction", inputPath, args); err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return f.checkOutput("audio_extraction", inputPath, outputPath)
}

// ResampleWAV converts any audio file to 16-bit PCM wav at the rate and
// channel count speech models expect.
func (f *FFmpeg) ResampleWAV(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-ar", strconv.Itoa(SpeechSampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-loglevel", "error",
		"-y",
		outputPath,
	}

	if err := f.run(ctx, "resample", inputPath, args); err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return f.checkOutput("resample", inputPath, outputPath)
}

// run executes ffmpeg under the instance timeout
func (f *FFmpeg) run(ctx context.Context, operation, file string, args []string) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewProcessingError(operation, file, ErrProcessingTimeout, strings.TrimSpace(stderr.String()))
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
		}
		return NewProcessingError(operation, file, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (f *FFmpeg) checkOutput(operation, file, outputPath string) error {
	info, err := os.Stat(outputPath)
	if err != nil {
		return NewProcessingError(operation, file, ErrNoOutput, "")
	}
	if info.Size() == 0 {
		_ = os.Remove(outputPath)
		return NewProcessingError(operation, file, ErrNoOutput, "")
	}
	return nil
}

// Package ytdlp downloads the audio track of a remote video with the yt-dlp
// command line tool.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrYtDlpNotFound   = errors.New("yt-dlp binary not found")
	ErrDownloadTimeout = errors.New("download timeout")
	ErrNoOutput        = errors.New("yt-dlp reported no output file")
)

// DownloadError carries the tool's stderr for a failed download
type DownloadError struct {
	URL    string
	Err    error
	Stderr string
}

func (e *DownloadError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("yt-dlp failed for %s: %v (stderr: %s)", e.URL, e.Err, e.Stderr)
	}
	return fmt.Sprintf("yt-dlp failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Download is the outcome of a successful audio download
type Download struct {
	Path  string // final mp3 path
	Title string // remote title, unsanitized
}

// Downloader wraps the yt-dlp binary
type Downloader struct {
	binaryPath  string
	ffmpegPath  string
	timeout     time.Duration
	audioFormat string
}

// New creates a downloader. ffmpegPath is passed to yt-dlp for audio
// post-processing when it is not a bare command name.
func New(binaryPath, ffmpegPath string, timeout time.Duration) *Downloader {
	return &Downloader{
		binaryPath:  binaryPath,
		ffmpegPath:  ffmpegPath,
		timeout:     timeout,
		audioFormat: "mp3",
	}
}

// ValidateBinary checks that yt-dlp is available
func (d *Downloader) ValidateBinary() error {
	if _, err := exec.LookPath(d.binaryPath); err != nil {
		return fmt.Errorf("%w: %s", ErrYtDlpNotFound, d.binaryPath)
	}
	return nil
}

// DownloadAudio fetches the best audio stream of url and converts it to mp3
// at outputBase+".mp3". Any file yt-dlp left behind under outputBase is
// removed on failure.
func (d *Downloader) DownloadAudio(ctx context.Context, url, outputBase string) (*Download, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.binaryPath, d.args(url, outputBase)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		removePartials(outputBase)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &DownloadError{URL: url, Err: ErrDownloadTimeout, Stderr: lastLine(stderr.String())}
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrYtDlpNotFound, d.binaryPath)
		}
		return nil, &DownloadError{URL: url, Err: err, Stderr: lastLine(stderr.String())}
	}

	title, path := parseOutput(stdout.String())
	if path == "" {
		path = outputBase + "." + d.audioFormat
	}
	if _, err := os.Stat(path); err != nil {
		removePartials(outputBase)
		return nil, &DownloadError{URL: url, Err: ErrNoOutput}
	}

	return &Download{Path: path, Title: title}, nil
}

func (d *Downloader) args(url, outputBase string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", d.audioFormat,
		"--audio-quality", "192K",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--output", outputBase + ".%(ext)s",
		"--print", "after_move:title",
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	if d.ffmpegPath != "" && strings.ContainsRune(d.ffmpegPath, filepath.Separator) {
		args = append(args, "--ffmpeg-location", d.ffmpegPath)
	}
	return append(args, "--", url)
}

// parseOutput reads the two lines requested with --print: the title and
// then the final file path.
func parseOutput(out string) (title, path string) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	switch len(lines) {
	case 0:
		return "", ""
	case 1:
		return lines[0], ""
	default:
		return lines[len(lines)-2], lines[len(lines)-1]
	}
}

func removePartials(outputBase string) {
	matches, _ := filepath.Glob(outputBase + ".*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

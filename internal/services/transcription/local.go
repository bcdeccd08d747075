package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// LocalConfig configures the whisper.cpp command line engine
type LocalConfig struct {
	BinaryPath string
	ModelPath  string
	Threads    int
	Timeout    time.Duration
	WorkDir    string // parent for the engine's scratch directory
}

// LocalWhisper runs whisper.cpp on the host
type LocalWhisper struct {
	cfg       LocalConfig
	resampler Resampler
}

// NewLocalWhisper creates a local transcriber
func NewLocalWhisper(cfg LocalConfig, resampler Resampler) *LocalWhisper {
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	return &LocalWhisper{cfg: cfg, resampler: resampler}
}

// Validate checks that the binary and model are present
func (w *LocalWhisper) Validate() error {
	if _, err := exec.LookPath(w.cfg.BinaryPath); err != nil {
		return fmt.Errorf("%w: whisper binary %s not found", ErrModeUnavailable, w.cfg.BinaryPath)
	}
	if _, err := os.Stat(w.cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: whisper model %s: %w", ErrModeUnavailable, w.cfg.ModelPath, err)
	}
	return nil
}

// whisper.cpp -oj output
type localOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets *struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe resamples the audio, runs whisper.cpp and parses its JSON
// output. The engine's scratch directory is always removed.
func (w *LocalWhisper) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	if w.cfg.WorkDir != "" {
		if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	tempDir, err := os.MkdirTemp(w.cfg.WorkDir, "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create whisper workspace: %w", err)
	}
	defer os.RemoveAll(tempDir)

	wavPath := filepath.Join(tempDir, "speech-16k-mono.wav")
	if err := w.resampler.ResampleWAV(ctx, audioPath, wavPath); err != nil {
		return nil, wrapTimeout(fmt.Errorf("%w: resample: %w", ErrEngineFailed, err))
	}

	outBase := filepath.Join(tempDir, "transcript")
	cmd := exec.CommandContext(ctx, w.cfg.BinaryPath, w.args(wavPath, outBase)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, wrapTimeout(ctx.Err())
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: whisper binary %s not found", ErrModeUnavailable, w.cfg.BinaryPath)
		}
		return nil, fmt.Errorf("%w: %w (stderr: %s)", ErrEngineFailed, err, tail(stderr.String(), 512))
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %w", ErrEngineFailed, err)
	}
	return parseLocalOutput(data)
}

func (w *LocalWhisper) args(wavPath, outBase string) []string {
	return []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-of", outBase,
		"-oj",
		"-l", "auto",
		"-t", strconv.Itoa(w.cfg.Threads),
		"-np",
	}
}

func parseLocalOutput(data []byte) (*Result, error) {
	var out localOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parsing output: %w", ErrEngineFailed, err)
	}

	result := &Result{
		Segments: make([]transcript.Segment, 0, len(out.Transcription)),
		Language: strings.ToLower(strings.TrimSpace(out.Result.Language)),
		Method:   models.MethodLocal,
	}
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if seg.Offsets == nil || text == "" {
			continue
		}
		result.Segments = append(result.Segments, transcript.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return result, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

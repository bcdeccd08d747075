package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// DefaultMaxFileSize is the upload limit of the OpenAI audio endpoint
const DefaultMaxFileSize int64 = 25 * 1024 * 1024

// OpenAIConfig configures the remote transcription client
type OpenAIConfig struct {
	APIKey      string
	URL         string
	Model       string
	Timeout     time.Duration
	MaxFileSize int64
}

// OpenAIClient transcribes through the OpenAI audio transcription API
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIClient creates a remote transcriber. A missing key is only
// reported when Transcribe is called.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type verboseResponse struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Segments []struct {
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
		Text  string   `json:"text"`
	} `json:"segments"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads audioPath and returns segment level timings
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}
	if info.Size() > c.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), c.cfg.MaxFileSize)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// the transport closes the body on every path, which unblocks the writer
	go c.writeForm(pw, mw, audioPath)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		msg := strings.TrimSpace(string(raw))
		var apiBody apiErrorBody
		if json.Unmarshal(raw, &apiBody) == nil && apiBody.Error.Message != "" {
			msg = apiBody.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, wrapTimeout(fmt.Errorf("decode transcription response: %w", err))
	}

	result := &Result{
		Segments: make([]transcript.Segment, 0, len(parsed.Segments)),
		Language: strings.ToLower(strings.TrimSpace(parsed.Language)),
		Method:   models.MethodOpenAIAPI,
	}
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if seg.Start == nil || seg.End == nil || text == "" {
			continue
		}
		result.Segments = append(result.Segments, transcript.Segment{Start: *seg.Start, End: *seg.End, Text: text})
	}
	return result, nil
}

// writeForm streams the form into pw so large audio is never held in memory
func (c *OpenAIClient) writeForm(pw *io.PipeWriter, mw *multipart.Writer, audioPath string) {
	err := func() error {
		fields := [][2]string{
			{"model", c.cfg.Model},
			{"response_format", "verbose_json"},
			{"timestamp_granularities[]", "segment"},
		}
		for _, f := range fields {
			if err := mw.WriteField(f[0], f[1]); err != nil {
				return err
			}
		}

		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			return err
		}
		f, err := os.Open(audioPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(part, f); err != nil {
			return err
		}
		return mw.Close()
	}()
	pw.CloseWithError(err)
}

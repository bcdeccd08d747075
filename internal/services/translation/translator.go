// Package translation turns transcript text into the other canonical
// languages with the Google Cloud Translation API.
package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/translate"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/killallgit/media-transcript-api/internal/telemetry"
)

// MaxBatchSize is the number of strings the v2 API accepts per request
const MaxBatchSize = 128

var (
	// ErrUnavailable means no translation credentials are configured
	ErrUnavailable = errors.New("translation service not configured")
	// ErrInvalidTarget means the target is not a valid language tag
	ErrInvalidTarget = errors.New("invalid target language")
)

// Translator translates texts into one target language, preserving order
type Translator interface {
	Translate(ctx context.Context, texts []string, target string) ([]string, error)
}

// GoogleConfig configures the Cloud Translation client
type GoogleConfig struct {
	CredentialsFile string
	APIKey          string
	BatchSize       int
	Timeout         time.Duration
}

// GoogleTranslator implements Translator with cloud.google.com/go/translate
type GoogleTranslator struct {
	client    *translate.Client
	batchSize int
	timeout   time.Duration
	log       zerolog.Logger
}

// NewGoogleTranslator creates a client from a credentials file or an API
// key. extra options are appended last and may supply credentials
// themselves. Without any credentials it returns ErrUnavailable.
func NewGoogleTranslator(ctx context.Context, cfg GoogleConfig, extra ...option.ClientOption) (*GoogleTranslator, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case len(extra) == 0:
		return nil, ErrUnavailable
	}
	opts = append(opts, extra...)

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating translation client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	return &GoogleTranslator{
		client:    client,
		batchSize: batchSize,
		timeout:   cfg.Timeout,
		log:       telemetry.Component("translation"),
	}, nil
}

// Translate sends texts in batches and concatenates the results in order
func (g *GoogleTranslator) Translate(ctx context.Context, texts []string, target string) ([]string, error) {
	tag, err := language.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))

		translated, err := g.translateBatch(ctx, texts[start:end], tag)
		if err != nil {
			return nil, fmt.Errorf("translating to %s (items %d-%d): %w", target, start, end-1, err)
		}
		out = append(out, translated...)
	}

	g.log.Debug().Str("target", target).Int("segments", len(out)).Msg("translated")
	return out, nil
}

func (g *GoogleTranslator) translateBatch(ctx context.Context, batch []string, tag language.Tag) ([]string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Translate(ctx, batch, tag, &translate.Options{Format: translate.Text})
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(resp))
	for i, t := range resp {
		texts[i] = t.Text
	}
	return texts, nil
}

// Close releases the underlying client
func (g *GoogleTranslator) Close() error {
	return g.client.Close()
}

package transcription

import (
	"context"

	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// Mode selects where speech recognition runs
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Result is the outcome of one transcription call
type Result struct {
	Segments []transcript.Segment
	Language string // raw label as reported by the engine, lowercased
	Method   string // models.MethodOpenAIAPI or models.MethodLocal
}

// Transcriber converts an audio file into timed segments
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Resampler prepares audio for the local engine
type Resampler interface {
	ResampleWAV(ctx context.Context, inputPath, outputPath string) error
}

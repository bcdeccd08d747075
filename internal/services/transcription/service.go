package transcription

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/killallgit/media-transcript-api/internal/telemetry"
)

// Service dispatches to the configured engine for each mode
type Service struct {
	engines map[Mode]Transcriber
	log     zerolog.Logger
}

// NewService creates a transcription service. A nil engine leaves its mode
// unavailable.
func NewService(remote, local Transcriber) *Service {
	engines := make(map[Mode]Transcriber, 2)
	if remote != nil {
		engines[ModeRemote] = remote
	}
	if local != nil {
		engines[ModeLocal] = local
	}
	return &Service{engines: engines, log: telemetry.Component("transcription")}
}

// Available reports whether mode has an engine
func (s *Service) Available(mode Mode) bool {
	_, ok := s.engines[mode]
	return ok
}

// Transcribe runs the engine selected by mode
func (s *Service) Transcribe(ctx context.Context, audioPath string, mode Mode) (*Result, error) {
	engine, ok := s.engines[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModeUnavailable, mode)
	}

	s.log.Info().Str("mode", string(mode)).Str("audio", audioPath).Msg("transcribing")
	result, err := engine.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("mode", string(mode)).
		Str("language", result.Language).
		Int("segments", len(result.Segments)).
		Msg("transcription complete")
	return result, nil
}

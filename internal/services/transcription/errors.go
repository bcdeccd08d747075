package transcription

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrMissingCredentials means the remote API key is not configured
	ErrMissingCredentials = errors.New("transcription API key not configured")
	// ErrFileTooLarge means the audio exceeds the remote upload limit
	ErrFileTooLarge = errors.New("audio file exceeds transcription size limit")
	// ErrModeUnavailable means the requested engine is not configured
	ErrModeUnavailable = errors.New("transcription mode not available")
	// ErrTimeout means the engine did not answer in time
	ErrTimeout = errors.New("transcription timed out")
	// ErrEngineFailed wraps local engine failures
	ErrEngineFailed = errors.New("transcription engine failed")
)

// APIError is a non-2xx response from the remote API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription API returned %d: %s", e.StatusCode, e.Message)
}

// wrapTimeout tags deadline and network timeouts with ErrTimeout
func wrapTimeout(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Package cleanup sweeps scratch directories left behind by runs that never
// reached their own cleanup, such as after a crash.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/killallgit/media-transcript-api/internal/telemetry"
)

// DefaultPrefixes name the scratch directories the service creates
var DefaultPrefixes = []string{"run-", "whisper-"}

// RunPruner deletes finished run log rows older than a cutoff
type RunPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically removes stale scratch directories
type Service struct {
	workDir         string
	maxAge          time.Duration
	cleanupInterval time.Duration
	prefixes        []string
	pruner          RunPruner
	runRetention    time.Duration
	now             func() time.Time
	log             zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the service
type Option func(*Service)

// WithRunPruner also deletes run log rows older than retention on each sweep
func WithRunPruner(p RunPruner, retention time.Duration) Option {
	return func(s *Service) {
		s.pruner = p
		s.runRetention = retention
	}
}

// NewService creates a new cleanup service
func NewService(workDir string, maxAge, cleanupInterval time.Duration, opts ...Option) *Service {
	s := &Service{
		workDir:         workDir,
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		prefixes:        DefaultPrefixes,
		now:             time.Now,
		log:             telemetry.Component("cleanup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one sweep and then sweeps every interval until Stop or ctx ends
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Sweep(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				s.log.Info().Msg("cleanup service stopped")
				return
			}
		}
	}()

	s.log.Info().
		Dur("interval", s.cleanupInterval).
		Dur("max_age", s.maxAge).
		Str("work_dir", s.workDir).
		Msg("cleanup service started")
}

// Stop ends the periodic sweep and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Sweep removes stale scratch directories and returns how many went
func (s *Service) Sweep(ctx context.Context) int {
	removed := s.sweepDirs()

	if s.pruner != nil && s.runRetention > 0 {
		n, err := s.pruner.DeleteOlderThan(ctx, s.now().Add(-s.runRetention))
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prune run log")
		} else if n > 0 {
			s.log.Info().Int64("runs", n).Msg("pruned run log")
		}
	}
	return removed
}

func (s *Service) sweepDirs() int {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("work_dir", s.workDir).Msg("cleanup scan failed")
		}
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !s.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.workDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("failed to remove stale workspace")
			continue
		}
		s.log.Debug().Str("path", path).Msg("removed stale workspace")
		removed++
	}
	return removed
}

func (s *Service) matches(name string) bool {
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// WorkspacePrefix starts the name of every per-run scratch directory
const WorkspacePrefix = "run-"

// Workspace is the scratch directory of one run. It hands out paths and
// remembers them so Release can delete every file the run created.
type Workspace struct {
	dir      string
	mu       sync.Mutex
	files    []string
	seen     map[string]struct{}
	released bool
}

// NewWorkspace creates a fresh scratch directory under root
func NewWorkspace(root, runID string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	dir, err := os.MkdirTemp(root, WorkspacePrefix+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating run workspace: %w", err)
	}
	return &Workspace{dir: dir, seen: map[string]struct{}{}}, nil
}

// Dir returns the scratch directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path registers name inside the workspace and returns its full path
func (w *Workspace) Path(name string) string {
	path := filepath.Join(w.dir, filepath.Base(name))
	w.Track(path)
	return path
}

// Track registers a file created outside the workspace directory
func (w *Workspace) Track(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[path]; ok {
		return
	}
	w.seen[path] = struct{}{}
	w.files = append(w.files, path)
}

// Files returns the tracked paths in registration order
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.files))
	copy(out, w.files)
	return out
}

// Release deletes every tracked file and the directory. Failures are
// logged and counted, never returned. Calling it again is a no-op.
func (w *Workspace) Release(log zerolog.Logger) int {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return 0
	}
	w.released = true
	files := w.files
	w.mu.Unlock()

	failures := 0
	removed := 0
	for _, path := range files {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			failures++
			log.Warn().Err(err).Str("path", path).Msg("failed to remove temporary file")
		}
	}

	// catches anything a tool wrote next to the tracked files
	if err := os.RemoveAll(w.dir); err != nil {
		failures++
		log.Warn().Err(err).Str("dir", w.dir).Msg("failed to remove run workspace")
	}

	log.Debug().Int("removed", removed).Int("failures", failures).Msg("run workspace released")
	return failures
}

package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPruner struct {
	mock.Mock
}

func (m *MockPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func makeDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "audio.mp3"), []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweep(t *testing.T) {
	root := t.TempDir()
	stale := makeDir(t, root, "run-abc-123", 2*time.Hour)
	staleWhisper := makeDir(t, root, "whisper-456", 2*time.Hour)
	fresh := makeDir(t, root, "run-def-789", time.Minute)
	other := makeDir(t, root, "keep-me", 2*time.Hour)

	svc := NewService(root, time.Hour, time.Minute)
	assert.Equal(t, 2, svc.Sweep(context.Background()))

	assert.NoDirExists(t, stale)
	assert.NoDirExists(t, staleWhisper)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestSweepMissingDir(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Minute)
	assert.Zero(t, svc.Sweep(context.Background()))
}

func TestSweepPrunesRuns(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pruner := new(MockPruner)
	pruner.On("DeleteOlderThan", mock.Anything, now.Add(-30*24*time.Hour)).Return(int64(3), nil).Once()
	pruner.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))

	svc := NewService(t.TempDir(), time.Hour, time.Minute, WithRunPruner(pruner, 30*24*time.Hour))
	svc.now = func() time.Time { return now }

	svc.Sweep(context.Background())
	svc.Sweep(context.Background())
	pruner.AssertNumberOfCalls(t, "DeleteOlderThan", 2)
}

func TestStartStop(t *testing.T) {
	root := t.TempDir()
	stale := makeDir(t, root, "run-old", 2*time.Hour)

	svc := NewService(root, time.Hour, 10*time.Millisecond)
	svc.Start(context.Background())
	// the initial sweep is synchronous
	assert.NoDirExists(t, stale)

	svc.Start(context.Background())
	svc.Stop()
	svc.Stop()
}

package tank

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandWorker_StatusReflectsStatusFile(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")

	w, err := newCommandWorker(WorkerConfig{
		Binary:     "sleep 5",
		ConfigPath: filepath.Join(dir, "config"),
		WorkDir:    dir,
		StatusPath: statusPath,
	}, "test-1")
	require.NoError(t, err)

	require.NoError(t, w.Start())
	defer w.Kill()

	assert.True(t, w.IsAlive())
	assert.Equal(t, GeneratorStatusPreparing, w.Status())

	require.NoError(t, os.WriteFile(statusPath, []byte(`{"status":"TESTING"}`), 0o644))
	assert.Equal(t, GeneratorStatusRunning, w.Status())
}

func TestCommandWorker_WaitReturnsAfterProcessExits(t *testing.T) {
	dir := t.TempDir()
	w, err := newCommandWorker(WorkerConfig{
		Binary:     "true",
		ConfigPath: filepath.Join(dir, "config"),
		WorkDir:    dir,
		StatusPath: filepath.Join(dir, "status.json"),
	}, "test-2")
	require.NoError(t, err)

	require.NoError(t, w.Start())
	require.NoError(t, w.Wait(time.Second))
	assert.False(t, w.IsAlive())
	assert.Equal(t, GeneratorStatusFinished, w.Status())
}

func TestNewCommandWorker_RejectsEmptyBinary(t *testing.T) {
	_, err := newCommandWorker(WorkerConfig{Binary: ""}, "test-3")
	assert.Error(t, err)
}

package shell

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/drover/errors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell commands")
	}
}

func TestExecuteCapturesStdout(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir())

	res, err := e.Execute(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.False(t, res.Truncated)
}

func TestExecuteRunsInDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	e := NewExecutor(dir)

	res, err := e.Execute(context.Background(), "pwd")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}

func TestExecuteShellFeatures(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir())

	res, err := e.Execute(context.Background(), "printf 'a\\nb\\nc\\n' | wc -l")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "3")
}

func TestExecuteNonZeroExitIsCommandFailed(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir())

	_, err := e.Execute(context.Background(), "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCommandFailed))
	assert.Contains(t, err.Error(), "boom")
}

func TestExecuteNonZeroExitWithoutStderr(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir())

	_, err := e.Execute(context.Background(), "exit 7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCommandFailed))
	assert.Contains(t, err.Error(), "exit status 7")
}

func TestExecuteEmptyCommand(t *testing.T) {
	e := NewExecutor(t.TempDir())

	_, err := e.Execute(context.Background(), "   ")
	assert.True(t, errors.Is(err, errors.ErrCommandFailed))
}

func TestExecuteTruncatesAtCap(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir()).WithMaxOutput(16)

	res, err := e.Execute(context.Background(), "printf '0123456789012345678901234567890123456789'")
	require.NoError(t, err) // truncation is not a failure mode
	assert.Len(t, res.Stdout, 16)
	assert.True(t, res.Truncated)
}

func TestExecuteTimeout(t *testing.T) {
	skipOnWindows(t)
	e := NewExecutor(t.TempDir()).WithTimeout(100 * time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCommandFailed))
	assert.Less(t, time.Since(start), 3*time.Second)
}

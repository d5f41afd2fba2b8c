// Package shell runs model-issued commands synchronously. The command
// string is handed to the platform shell unmodified; this is the one
// deliberate raw-shell path in the codebase, because model-issued commands
// routinely contain pipes and redirection that an argv split would break.
// The executor bounds it with an output cap and a wall-clock timeout.
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/m4xw311/drover/errors"
)

const (
	// DefaultMaxOutput caps captured stdout and stderr, each, at 10 MiB.
	DefaultMaxOutput = 10 * 1024 * 1024
	// DefaultTimeout bounds the wait for a command; the source design had
	// none, which is an availability risk.
	DefaultTimeout = 5 * time.Minute
)

// Executor runs one command at a time inside a working directory.
type Executor struct {
	dir       string
	maxOutput int
	timeout   time.Duration
}

// NewExecutor creates an executor rooted in dir with the default bounds.
func NewExecutor(dir string) *Executor {
	return &Executor{dir: dir, maxOutput: DefaultMaxOutput, timeout: DefaultTimeout}
}

// WithTimeout overrides the default timeout; zero disables it.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// WithMaxOutput overrides the per-stream capture cap.
func (e *Executor) WithMaxOutput(n int) *Executor {
	e.maxOutput = n
	return e
}

// Result carries a finished command's captured output. Truncated is set
// when either stream hit the cap; truncation is not a failure.
type Result struct {
	Stdout    string
	Stderr    string
	Truncated bool
}

// Execute runs the command to completion and captures its output. On
// non-zero exit it fails with ErrCommandFailed carrying captured stderr, or
// a generic message when stderr is empty.
func (e *Executor) Execute(ctx context.Context, command string) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.NewKind(errors.ErrCommandFailed, "empty command")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", command)
	}
	cmd.Dir = e.dir

	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, errors.NewKind(errors.ErrCommandFailed, "command timed out after %s", e.timeout)
		}
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return res, errors.NewKind(errors.ErrCommandFailed, "%s", msg)
	}
	return res, nil
}

// cappedBuffer discards writes past its limit instead of growing. The
// command keeps running; only the capture is bounded.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string { return b.buf.String() }

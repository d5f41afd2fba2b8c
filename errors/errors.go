package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Sentinel kinds for failures the session loop branches on. Everything else
// travels as an anonymous wrapped error.
var (
	// ErrAccessDenied marks a path that escapes the workspace root or a
	// declined trust prompt.
	ErrAccessDenied = stderrors.New("access denied")
	// ErrNotFound marks a missing file or directory.
	ErrNotFound = stderrors.New("not found")
	// ErrCommandFailed marks a shell command that exited non-zero or could
	// not be launched.
	ErrCommandFailed = stderrors.New("command failed")
	// ErrRemoteCallFailed marks a failed model API call.
	ErrRemoteCallFailed = stderrors.New("remote call failed")
	// ErrSetupFailed marks an unusable configuration at startup; fatal.
	ErrSetupFailed = stderrors.New("setup failed")
)

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// NewKind creates an error that satisfies errors.Is for the given sentinel
// while carrying a formatted message and caller information.
func NewKind(kind error, format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), kind)
}

// WrapKind attaches a sentinel kind and a formatted message to an underlying
// error. The cause's text is preserved but only the kind is matchable, so
// callers branch on the taxonomy rather than on provider strings.
func WrapKind(kind error, err error, format string, a ...interface{}) error {
	if err == nil {
		return NewKind(kind, format, a...)
	}
	return fmt.Errorf("[%s] %s: %v: %w", caller(), fmt.Sprintf(format, a...), err, kind)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

package process

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kbukum/execkit/errors"
)

// ShellCommandError reports a child that exited with a nonzero code while
// its exit code was being checked.
type ShellCommandError struct {
	// Args is the command that was run.
	Args []string
	// ExitCode is the nonzero exit code.
	ExitCode int
	// Stdout and Stderr hold the captured output. Both are nil when the
	// output was streamed.
	Stdout []byte
	Stderr []byte
	// Captured is true in capturing mode.
	Captured bool
}

// Error embeds the exit code and, in capturing mode, the full captured
// output so the failure can be diagnosed without re-running the command.
func (e *ShellCommandError) Error() string {
	if !e.Captured {
		return fmt.Sprintf("Non-zero exit code: %d", e.ExitCode)
	}
	return fmt.Sprintf("Non-zero exit code: %d\n\nSTDOUT:\n%s\n\nSTDERR:\n%s",
		e.ExitCode, e.Stdout, e.Stderr)
}

// ToAppError maps the failure onto the shared AppError shape.
func (e *ShellCommandError) ToAppError() *errors.AppError {
	appErr := errors.NonZeroExit(e.ExitCode).
		WithDetail("command", strings.Join(e.Args, " ")).
		WithCause(e)
	if e.Captured {
		appErr.WithDetails(map[string]any{
			"stdout": string(e.Stdout),
			"stderr": string(e.Stderr),
		})
	}
	return appErr
}

// AsShellCommandError finds a *ShellCommandError in err's chain.
func AsShellCommandError(err error) (*ShellCommandError, bool) {
	var shellErr *ShellCommandError
	if stderrors.As(err, &shellErr) {
		return shellErr, true
	}
	return nil, false
}

// ExitCodeOf returns the nonzero exit code carried by a *ShellCommandError
// in err's chain. ok is false for nil and for any other error, so a child
// killed by SIGHUP (-1) is never confused with a failure to run.
func ExitCodeOf(err error) (code int, ok bool) {
	shellErr, ok := AsShellCommandError(err)
	if !ok {
		return 0, false
	}
	return shellErr.ExitCode, true
}

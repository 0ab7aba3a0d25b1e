// Package process runs a single child process and waits for it.
//
// A Command names the executable and its arguments (no shell is involved),
// an optional environment overlay and working directory, and whether the
// child's output is streamed to the parent's streams or captured into
// memory. Run blocks until the child has exited and been reaped.
//
//	res, err := process.Exec(ctx, []string{"git", "status"}, process.WithDir(repo))
//	var shellErr *process.ShellCommandError
//	if errors.As(err, &shellErr) {
//	    fmt.Println(shellErr.ExitCode, string(shellErr.Stderr))
//	}
//
// A nonzero exit is reported as a *ShellCommandError unless IgnoreExitCode
// is set. A child that cannot be started at all is reported as an
// *errors.AppError with code START_FAILED wrapping the os/exec error.
//
// The context passed to Run carries tracing and logging correlation only.
// It does not bound the child's lifetime; callers that need a timeout must
// arrange it themselves.
package process

package process

import "time"

// Result holds the status and, in capturing mode, the output of a completed
// child process.
type Result struct {
	// ExitCode is the process exit code. On Unix a child killed by a signal
	// reports the negated signal number.
	ExitCode int `json:"exit_code"`
	// Stdout is the captured standard output. Nil when streamed.
	Stdout []byte `json:"stdout,omitempty"`
	// Stderr is the captured standard error. Nil when streamed.
	Stderr []byte `json:"stderr,omitempty"`
	// Streamed is true when output went to the stream destinations and only
	// the exit code is available.
	Streamed bool `json:"streamed"`
	// Duration is how long the process ran.
	Duration time.Duration `json:"duration"`
	// RunID correlates this invocation with its logs and span.
	RunID string `json:"run_id"`
}

// Success reports whether the child exited with code 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

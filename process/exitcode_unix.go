//go:build unix

package process

import (
	"os"
	"syscall"
)

// exitCode returns the child's exit code, or the negated signal number when
// it was terminated by a signal.
func exitCode(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}

//go:build !unix

package process

import "os"

func exitCode(state *os.ProcessState) int {
	return state.ExitCode()
}

package process_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/process"
)

func TestRunEcho(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"echo", "hello", "world"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	out := strings.TrimSpace(string(result.Stdout))
	if out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
	if result.Streamed {
		t.Fatal("expected capturing mode")
	}
	if result.RunID == "" {
		t.Fatal("expected a generated run ID")
	}
}

func TestRunCapturesExactBytes(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", "printf hello; printf world >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	if string(result.Stdout) != "hello" {
		t.Fatalf("expected stdout 'hello', got %q", result.Stdout)
	}
	if string(result.Stderr) != "world" {
		t.Fatalf("expected stderr 'world', got %q", result.Stderr)
	}
}

func TestRunSuccessIgnoresThrowSetting(t *testing.T) {
	for _, ignore := range []bool{false, true} {
		result, err := process.Run(context.Background(), process.Command{
			Args:           []string{"sh", "-c", "printf ok"},
			IgnoreExitCode: ignore,
		})
		if err != nil {
			t.Fatalf("ignore=%v: unexpected error: %v", ignore, err)
		}
		if result.ExitCode != 0 || string(result.Stdout) != "ok" {
			t.Fatalf("ignore=%v: unexpected result %+v", ignore, result)
		}
	}
}

func TestRunExitCodeThrows(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", "printf out; printf err >&2; exit 42"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if result == nil || result.ExitCode != 42 {
		t.Fatalf("expected result with exit code 42, got %+v", result)
	}

	var shellErr *process.ShellCommandError
	if !stderrors.As(err, &shellErr) {
		t.Fatalf("expected *ShellCommandError, got %T: %v", err, err)
	}
	if shellErr.ExitCode != 42 {
		t.Fatalf("expected exit code 42 in error, got %d", shellErr.ExitCode)
	}
	if string(shellErr.Stdout) != "out" || string(shellErr.Stderr) != "err" {
		t.Fatalf("expected captured output in error, got %q / %q", shellErr.Stdout, shellErr.Stderr)
	}
	msg := err.Error()
	for _, want := range []string{"42", "STDOUT:\nout", "STDERR:\nerr"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error message %q", want, msg)
		}
	}
}

func TestRunExitCodeIgnored(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args:           []string{"sh", "-c", "printf partial; exit 3"},
		IgnoreExitCode: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if string(result.Stdout) != "partial" {
		t.Fatalf("expected captured stdout, got %q", result.Stdout)
	}
	if result.Success() {
		t.Fatal("expected Success() to be false")
	}
}

func TestRunEnvOverlay(t *testing.T) {
	const key = "EXECKIT_TEST_FOO"
	t.Setenv(key, "")
	os.Unsetenv(key)

	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", `printf %s "$` + key + `"`},
		Env:  map[string]string{key: "bar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(result.Stdout), "bar") {
		t.Fatalf("expected 'bar' in output, got %q", result.Stdout)
	}
	if _, ok := os.LookupEnv(key); ok {
		t.Fatalf("expected %s to stay unset in the caller", key)
	}
}

func TestRunEnvOverlayWinsAndKeepsParent(t *testing.T) {
	t.Setenv("EXECKIT_TEST_KEEP", "parent")
	t.Setenv("EXECKIT_TEST_OVERRIDE", "parent")

	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", `printf '%s,%s' "$EXECKIT_TEST_KEEP" "$EXECKIT_TEST_OVERRIDE"`},
		Env:  map[string]string{"EXECKIT_TEST_OVERRIDE": "child"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "parent,child" {
		t.Fatalf("expected 'parent,child', got %q", result.Stdout)
	}
	if os.Getenv("EXECKIT_TEST_OVERRIDE") != "parent" {
		t.Fatal("expected caller environment to be unchanged")
	}
}

func TestRunNilEnvInherits(t *testing.T) {
	t.Setenv("EXECKIT_TEST_INHERIT", "yes")

	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", `printf %s "$EXECKIT_TEST_INHERIT"`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "yes" {
		t.Fatalf("expected inherited value, got %q", result.Stdout)
	}
}

func TestRunDir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, env := range []map[string]string{nil, {"EXECKIT_TEST_X": "1"}} {
		result, err := process.Run(context.Background(), process.Command{
			Args: []string{"sh", "-c", "pwd"},
			Dir:  dir,
			Env:  env,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(string(result.Stdout)); got != dir {
			t.Fatalf("env=%v: expected %q, got %q", env, dir, got)
		}
	}
}

func TestRunStdin(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args:  []string{"cat"},
		Stdin: strings.NewReader("from stdin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Stdout) != "from stdin" {
		t.Fatalf("expected 'from stdin', got %q", result.Stdout)
	}
}

func TestRunStreamLargeOutput(t *testing.T) {
	const size = 256 * 1024
	var stdout bytes.Buffer

	result, err := process.Exec(context.Background(),
		[]string{"sh", "-c", "head -c 262144 /dev/zero; head -c 262144 /dev/zero >&2"},
		process.WithStreamTo(&stdout, io.Discard),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Streamed {
		t.Fatal("expected streaming mode")
	}
	if result.Stdout != nil || result.Stderr != nil {
		t.Fatal("expected no captured bytes in streaming mode")
	}
	if stdout.Len() != size {
		t.Fatalf("expected %d streamed bytes, got %d", size, stdout.Len())
	}
}

func TestRunCaptureLargeOutput(t *testing.T) {
	const size = 512 * 1024
	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"sh", "-c", "head -c 524288 /dev/zero >&2; head -c 524288 /dev/zero"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Stdout) != size || len(result.Stderr) != size {
		t.Fatalf("expected %d bytes on each stream, got %d / %d", size, len(result.Stdout), len(result.Stderr))
	}
}

func TestRunStreamNonZero(t *testing.T) {
	result, err := process.Exec(context.Background(),
		[]string{"sh", "-c", "echo visible; exit 5"},
		process.WithStreamTo(io.Discard, io.Discard),
	)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if err.Error() != "Non-zero exit code: 5" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	shellErr, ok := process.AsShellCommandError(err)
	if !ok {
		t.Fatalf("expected *ShellCommandError, got %T", err)
	}
	if shellErr.Captured || shellErr.Stdout != nil {
		t.Fatal("expected no captured output on streamed failure")
	}
	if result.ExitCode != 5 {
		t.Fatalf("expected exit code 5, got %d", result.ExitCode)
	}
}

func TestRunStartFailure(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Args: []string{"execkit-definitely-not-a-binary"},
	})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if result != nil {
		t.Fatalf("expected nil result, got %+v", result)
	}
	if _, ok := process.AsShellCommandError(err); ok {
		t.Fatal("start failure must not be a ShellCommandError")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeStartFailed {
		t.Fatalf("expected START_FAILED AppError, got %T: %v", err, err)
	}
	if !stderrors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound in chain, got %v", err)
	}
}

func TestRunMissingDir(t *testing.T) {
	_, err := process.Run(context.Background(), process.Command{
		Args: []string{"true"},
		Dir:  filepath.Join(t.TempDir(), "missing"),
	})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeStartFailed {
		t.Fatalf("expected START_FAILED AppError, got %v", err)
	}
}

func TestRunInvalidCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  process.Command
	}{
		{"no args", process.Command{}},
		{"blank executable", process.Command{Args: []string{"  "}}},
		{"bad env key", process.Command{Args: []string{"true"}, Env: map[string]string{"A=B": "x"}}},
		{"NUL in arg", process.Command{Args: []string{"echo", "a\x00b"}}},
		{"bad run id", process.Command{Args: []string{"true"}, RunID: "nope"}},
		{"writer without streaming", process.Command{Args: []string{"true"}, Stdout: io.Discard}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := process.Run(context.Background(), tc.cmd)
			if result != nil {
				t.Fatalf("expected nil result, got %+v", result)
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeInvalidInput {
				t.Fatalf("expected INVALID_INPUT AppError, got %v", err)
			}
		})
	}
}

func TestExecDefaultsToThrow(t *testing.T) {
	_, err := process.Exec(context.Background(), []string{"false"})
	if code, ok := process.ExitCodeOf(err); !ok || code != 1 {
		t.Fatalf("expected exit code 1 error, got %v", err)
	}

	result, err := process.Exec(context.Background(), []string{"false"}, process.WithThrowOnError(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", result.ExitCode)
	}
}

func TestExecOptions(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var hooked bool

	result, err := process.Exec(context.Background(),
		[]string{"sh", "-c", `printf '%s:%s:' "$A" "$B"; pwd -P; cat`},
		process.WithEnv(map[string]string{"A": "1"}),
		process.WithEnv(map[string]string{"B": "2"}),
		process.WithDir(dir),
		process.WithStdin(strings.NewReader("in")),
		process.WithRunID("6f1c9c84-8a8e-4a57-9c3b-2d1f61c9a0e2"),
		process.WithCmdOption(func(*exec.Cmd) { hooked = true }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1:2:" + dir + "\nin"
	if string(result.Stdout) != want {
		t.Fatalf("expected %q, got %q", want, result.Stdout)
	}
	if result.RunID != "6f1c9c84-8a8e-4a57-9c3b-2d1f61c9a0e2" {
		t.Fatalf("expected supplied run ID, got %q", result.RunID)
	}
	if !hooked {
		t.Fatal("expected Configure hook to run")
	}
}

func TestExecExtraFiles(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	_, err = process.Exec(context.Background(),
		[]string{"sh", "-c", "printf extra >&3"},
		process.WithExtraFiles(w),
	)
	w.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "extra" {
		t.Fatalf("expected 'extra' on fd 3, got %q", got)
	}
}

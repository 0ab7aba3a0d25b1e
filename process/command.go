package process

import (
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/kbukum/execkit/validation"
)

// Command configures a child process to execute.
type Command struct {
	// Args is the executable followed by its arguments. Args[0] is resolved
	// via PATH when it contains no path separator.
	Args []string `json:"args" validate:"required,min=1"`
	// Env is overlaid on a snapshot of the caller's environment. Nil means
	// the child inherits the caller's environment unmodified.
	Env map[string]string `json:"env" validate:"omitempty,dive,keys,envname,endkeys,envvalue"`
	// Dir is the working directory. If empty, uses the caller's directory.
	Dir string `json:"dir"`
	// StreamOutput connects the child's stdout and stderr to Stdout and
	// Stderr instead of capturing them. A false value falls back to the
	// runner default; use WithCaptureOutput to force capturing.
	StreamOutput bool `json:"stream_output"`
	// IgnoreExitCode returns a nonzero exit in the Result instead of as a
	// *ShellCommandError. A false value falls back to the runner default;
	// use WithThrowOnError(true) to force checking.
	IgnoreExitCode bool `json:"ignore_exit_code"`
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader `json:"-"`
	// Stdout and Stderr are the streaming destinations. They default to
	// os.Stdout and os.Stderr and may only be set with StreamOutput.
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`
	// RunID correlates logs and spans for this invocation. Generated when empty.
	RunID string `json:"run_id"`
	// Configure hooks are applied to the *exec.Cmd just before it starts.
	Configure []func(*exec.Cmd) `json:"-"`

	// Set by options so an explicit false overrides a runner default.
	streamSet bool
	ignoreSet bool
}

// Validate checks the command before anything is started.
func (c *Command) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New().
		Required("args[0]", c.Args[0]).
		OptionalUUID("run_id", c.RunID).
		Custom(c.StreamOutput || (c.Stdout == nil && c.Stderr == nil),
			"stdout", "stream destinations require stream_output")
	for i, arg := range c.Args {
		v.NoNUL(argField(i), arg)
	}
	v.NoNUL("dir", c.Dir)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (c *Command) mode() string {
	if c.StreamOutput {
		return ModeStream
	}
	return ModeCapture
}

func (c *Command) streamTargets() (io.Writer, io.Writer) {
	stdout, stderr := c.Stdout, c.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

// Output modes, as reported in logs, spans and metrics.
const (
	ModeStream  = "stream"
	ModeCapture = "capture"
)

// Option configures a Command built by Exec.
type Option func(*Command)

// WithEnv overlays env on the caller's environment. Successive calls merge.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		if c.Env == nil {
			c.Env = make(map[string]string, len(env))
		}
		for k, v := range env {
			c.Env[k] = v
		}
	}
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(c *Command) { c.Dir = dir }
}

// WithStreamOutput connects the child's output to the parent's stdout and
// stderr instead of capturing it.
func WithStreamOutput() Option {
	return func(c *Command) {
		c.StreamOutput = true
		c.streamSet = true
	}
}

// WithCaptureOutput captures the child's output even when the runner
// streams by default.
func WithCaptureOutput() Option {
	return func(c *Command) {
		c.StreamOutput = false
		c.streamSet = true
	}
}

// WithStreamTo streams the child's output to the given writers.
func WithStreamTo(stdout, stderr io.Writer) Option {
	return func(c *Command) {
		c.StreamOutput = true
		c.streamSet = true
		c.Stdout = stdout
		c.Stderr = stderr
	}
}

// WithThrowOnError controls whether a nonzero exit is returned as a
// *ShellCommandError. Exec enables it by default. The value given here
// overrides the runner's IgnoreExitCode.
func WithThrowOnError(throw bool) Option {
	return func(c *Command) {
		c.IgnoreExitCode = !throw
		c.ignoreSet = true
	}
}

// WithStdin feeds r to the child's standard input.
func WithStdin(r io.Reader) Option {
	return func(c *Command) { c.Stdin = r }
}

// WithRunID sets the correlation ID instead of generating one.
func WithRunID(id string) Option {
	return func(c *Command) { c.RunID = id }
}

// WithCmdOption forwards an arbitrary hook to the underlying *exec.Cmd.
func WithCmdOption(fn func(*exec.Cmd)) Option {
	return func(c *Command) { c.Configure = append(c.Configure, fn) }
}

// WithSysProcAttr sets platform-specific process attributes.
func WithSysProcAttr(attr *syscall.SysProcAttr) Option {
	return WithCmdOption(func(cmd *exec.Cmd) { cmd.SysProcAttr = attr })
}

// WithExtraFiles passes additional open files to the child, starting at fd 3.
func WithExtraFiles(files ...*os.File) Option {
	return WithCmdOption(func(cmd *exec.Cmd) { cmd.ExtraFiles = append(cmd.ExtraFiles, files...) })
}

// NewCommand builds a Command from args and options.
func NewCommand(args []string, opts ...Option) Command {
	c := Command{Args: args}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func argField(i int) string {
	return "args[" + strconv.Itoa(i) + "]"
}

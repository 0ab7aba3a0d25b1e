package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
)

// Config holds runner-level defaults applied to every command.
type Config struct {
	// Dir is used when a command leaves Dir empty.
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"`
	// Env is layered under each command's Env; the command wins on collision.
	// It is not read from config files because viper lowercases map keys.
	Env map[string]string `yaml:"-" mapstructure:"-"`
	// StreamOutput streams every command's output.
	StreamOutput bool `yaml:"stream_output,omitempty" mapstructure:"stream_output"`
	// IgnoreExitCode reports nonzero exits in the Result only.
	IgnoreExitCode bool `yaml:"ignore_exit_code,omitempty" mapstructure:"ignore_exit_code"`
}

// Runner executes commands with shared defaults, logging and telemetry.
// A Runner holds no per-run state and is safe for concurrent use.
type Runner struct {
	config  Config
	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.RunMetrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *logger.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithTracer sets the tracer used for process.run spans.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) { r.tracer = t }
}

// WithMetrics sets the instruments recorded for each run.
func WithMetrics(m *observability.RunMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a Runner. Without options it logs through the "process"
// component logger and traces through the global tracer provider.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{config: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = observability.Tracer(observability.InstrumentationName)
	}
	return r
}

func (r *Runner) componentLogger() *logger.Logger {
	if r.log != nil {
		return r.log
	}
	return logger.Get("process")
}

// applyDefaults returns cmd with the runner defaults filled in. Env is a
// fresh map whenever the runner contributes to it. Modes chosen through
// options win over the runner; a true field set directly also wins.
func (r *Runner) applyDefaults(cmd Command) Command {
	if cmd.Dir == "" {
		cmd.Dir = r.config.Dir
	}
	cmd.Env = mergeOverlays(r.config.Env, cmd.Env)
	if !cmd.streamSet && !cmd.StreamOutput {
		cmd.StreamOutput = r.config.StreamOutput
	}
	if !cmd.ignoreSet && !cmd.IgnoreExitCode {
		cmd.IgnoreExitCode = r.config.IgnoreExitCode
	}
	return cmd
}

// Run starts cmd, waits for it to exit and returns its Result.
//
// In capturing mode stdout and stderr are drained concurrently with the wait,
// so output of any size cannot block the child. In streaming mode they are
// handed to the stream destinations and the Result carries only the exit
// code.
//
// When the child exits nonzero and IgnoreExitCode is false the Result is
// returned together with a *ShellCommandError. A child that cannot be
// started yields a nil Result and a START_FAILED *errors.AppError.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	cmd = r.applyDefaults(cmd)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.RunID == "" {
		cmd.RunID = uuid.NewString()
	}
	mode := cmd.mode()

	ctx, span := r.tracer.Start(ctx, observability.SpanProcessRun, trace.WithAttributes(
		observability.AttrExecutable.String(cmd.Args[0]),
		observability.AttrArgsCount.Int(len(cmd.Args)),
		observability.AttrMode.String(mode),
		observability.AttrDir.String(cmd.Dir),
		observability.AttrRunID.String(cmd.RunID),
	))
	defer span.End()

	log := r.componentLogger().WithContext(ctx).WithFields(logger.Fields(
		logger.FieldRunID, cmd.RunID,
		logger.FieldCommand, strings.Join(cmd.Args, " "),
		logger.FieldMode, mode,
	))

	c := exec.Command(cmd.Args[0], cmd.Args[1:]...) //nolint:gosec // running caller-supplied commands is the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env, cmd.Dir)
	c.Stdin = cmd.Stdin

	// exec copies into non-*os.File writers from its own goroutines and Wait
	// joins them, which keeps both pipes drained while the child runs.
	var stdout, stderr bytes.Buffer
	if cmd.StreamOutput {
		c.Stdout, c.Stderr = cmd.streamTargets()
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	for _, configure := range cmd.Configure {
		configure(c)
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		appErr := errors.StartFailed(cmd.Args, err)
		observability.SetSpanError(span, appErr)
		r.metrics.RecordStartFailure(ctx, mode)
		log.Warn("process failed to start", logger.ErrorFields("start", err))
		return nil, appErr
	}
	span.SetAttributes(observability.AttrPID.Int(c.Process.Pid))
	log.Debug("process started", logger.Fields(logger.FieldDir, c.Dir, logger.FieldPID, c.Process.Pid))

	waitErr := c.Wait()
	duration := time.Since(start)

	result := &Result{
		ExitCode: exitCode(c.ProcessState),
		Streamed: cmd.StreamOutput,
		Duration: duration,
		RunID:    cmd.RunID,
	}
	if !cmd.StreamOutput {
		result.Stdout = stdout.Bytes()
		result.Stderr = stderr.Bytes()
	}

	span.SetAttributes(observability.AttrExitCode.Int(result.ExitCode))
	fields := logger.MergeWithDuration(logger.Fields(logger.FieldExitCode, result.ExitCode), duration)

	// The child has been reaped; any error other than *exec.ExitError came
	// from copying its output to a stream destination.
	var exitErr *exec.ExitError
	if waitErr != nil && !stderrors.As(waitErr, &exitErr) {
		appErr := errors.Internal(waitErr).WithDetail("exit_code", result.ExitCode)
		observability.SetSpanError(span, appErr)
		log.Error("process output copy failed", logger.ErrorFields("wait", waitErr))
		return result, appErr
	}

	if result.ExitCode != 0 {
		r.metrics.RecordRun(ctx, mode, observability.OutcomeNonZeroExit, duration)
		log.Debug("process exited with non-zero code", fields)
		if cmd.IgnoreExitCode {
			return result, nil
		}
		shellErr := &ShellCommandError{
			Args:     cmd.Args,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Captured: !cmd.StreamOutput,
		}
		observability.SetSpanError(span, errors.NonZeroExit(result.ExitCode))
		return result, shellErr
	}

	r.metrics.RecordRun(ctx, mode, observability.OutcomeSuccess, duration)
	log.Debug("process exited", fields)
	return result, nil
}

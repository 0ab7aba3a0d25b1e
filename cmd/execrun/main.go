// Command execrun runs a command through the execkit process runner.
//
// Usage:
//
//	execrun [flags] -- command [args...]
//
// By default the child's output is captured and replayed once it exits, and
// execrun exits with the child's exit code.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/execkit/config"
	"github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/observability"
	"github.com/kbukum/execkit/process"
	"github.com/kbukum/execkit/version"
)

// Exit codes used when the child never produced one.
const (
	exitInternal    = 1
	exitUsage       = 2
	exitStartFailed = 127
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cliFlags struct {
	fs          *pflag.FlagSet
	configFile  string
	jsonOutput  bool
	showVersion bool
}

func newFlags(stderr io.Writer) *cliFlags {
	f := &cliFlags{fs: pflag.NewFlagSet(serviceName, pflag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] -- command [args...]\n\nFlags:\n", serviceName)
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.configFile, "config", "c", "", "path to config.yml")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the result as JSON")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")

	fs.StringArrayP("env", "e", nil, "set KEY=VALUE in the child environment (repeatable)")
	fs.String("env-file", "", "read child environment overrides from a dotenv file")
	fs.StringP("dir", "C", "", "working directory of the child")
	fs.BoolP("stream", "s", false, "stream output instead of capturing it")
	fs.Bool("no-check", false, "report a non-zero exit code without failing")
	fs.String("log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	fs.String("log-format", "", "log format (console, json)")
	return f
}

// run is main without the process globals. It returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := newFlags(stderr)
	if err := flags.fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return exitUsage
	}

	if flags.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", serviceName, version.Get())
		return 0
	}

	command := flags.fs.Args()
	if len(command) == 0 {
		flags.fs.Usage()
		return exitUsage
	}

	cfg := defaultCLIConfig()
	opts := []config.LoaderOption{config.WithFlags(flags.fs, flagKeys)}
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}
	cfg.ApplyDefaults(version.Get().Short())
	if cfg.Logging.Writer == nil {
		cfg.Logging.Writer = stderr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, err)
		return exitUsage
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	runnerCfg, err := cfg.RunnerConfig()
	if err != nil {
		log.Error("invalid child environment", logger.ErrorFields("config", err))
		return exitUsage
	}

	runnerOpts, shutdown := initTelemetry(ctx, &cfg, log)
	defer shutdown()

	runner := process.NewRunner(runnerCfg, runnerOpts...)

	execOpts := []process.Option{process.WithStdin(stdin)}
	if runnerCfg.StreamOutput {
		execOpts = append(execOpts, process.WithStreamTo(stdout, stderr))
	}

	result, runErr := runner.Exec(ctx, command, execOpts...)

	if flags.jsonOutput {
		writeReport(stdout, result, runErr)
	} else if result != nil && !result.Streamed {
		_, _ = stdout.Write(result.Stdout)
		_, _ = stderr.Write(result.Stderr)
	}

	return exitStatus(result, runErr, stderr, flags.jsonOutput)
}

// initTelemetry starts the exporters enabled in cfg and returns the runner
// options that use them. shutdown flushes whatever was started.
func initTelemetry(ctx context.Context, cfg *CLIConfig, log *logger.Logger) ([]process.RunnerOption, func()) {
	opts := []process.RunnerOption{process.WithLogger(log.WithComponent("process"))}
	var shutdowns []func(context.Context) error

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			log.Warn("tracing disabled", logger.ErrorFields("init_tracer", err))
		} else {
			shutdowns = append(shutdowns, tp.Shutdown)
		}
	}

	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics)
		if err != nil {
			log.Warn("metrics disabled", logger.ErrorFields("init_meter", err))
		} else {
			shutdowns = append(shutdowns, mp.Shutdown)
			metrics, err := observability.NewRunMetrics(observability.Meter(observability.InstrumentationName))
			if err != nil {
				log.Warn("run metrics unavailable", logger.ErrorFields("new_run_metrics", err))
			} else {
				opts = append(opts, process.WithMetrics(metrics))
			}
		}
	}

	return opts, func() {
		// The run context may already be cancelled by a signal.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, shutdown := range shutdowns {
			if err := shutdown(flushCtx); err != nil {
				log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
			}
		}
	}
}

// report is the --json output.
type report struct {
	RunID      string            `json:"run_id,omitempty"`
	ExitCode   int               `json:"exit_code"`
	Stdout     string            `json:"stdout,omitempty"`
	Stderr     string            `json:"stderr,omitempty"`
	Streamed   bool              `json:"streamed"`
	DurationMS int64             `json:"duration_ms"`
	Error      *errors.ErrorBody `json:"error,omitempty"`
}

func writeReport(w io.Writer, result *process.Result, runErr error) {
	var r report
	if result != nil {
		r = report{
			RunID:      result.RunID,
			ExitCode:   result.ExitCode,
			Stdout:     string(result.Stdout),
			Stderr:     string(result.Stderr),
			Streamed:   result.Streamed,
			DurationMS: result.Duration.Milliseconds(),
		}
	}
	if appErr := toAppError(runErr); appErr != nil {
		body := appErr.ToResponse().Error
		// stdout and stderr are already top-level fields
		delete(body.Details, "stdout")
		delete(body.Details, "stderr")
		body.Cause = ""
		r.Error = &body
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}

func toAppError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if shellErr, ok := process.AsShellCommandError(err); ok {
		return shellErr.ToAppError()
	}
	return errors.Wrap(err)
}

// exitStatus maps the outcome onto execrun's own exit code. A child killed
// by a signal is reported the way shells do, as 128+signal.
func exitStatus(result *process.Result, runErr error, stderr io.Writer, quiet bool) int {
	_, nonZero := process.AsShellCommandError(runErr)
	if result != nil && (runErr == nil || nonZero) {
		if result.ExitCode < 0 {
			return 128 - result.ExitCode
		}
		return result.ExitCode
	}

	appErr := toAppError(runErr)
	if !quiet {
		fmt.Fprintf(stderr, "%s: %v\n", serviceName, appErr)
	}
	switch appErr.Code {
	case errors.ErrCodeStartFailed:
		return exitStartFailed
	case errors.ErrCodeInvalidInput, errors.ErrCodeMissingField:
		return exitUsage
	default:
		return exitInternal
	}
}

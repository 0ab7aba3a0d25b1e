package process

import (
	"context"
)

var defaultRunner = NewRunner(Config{})

// Run executes cmd with the package default runner.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	return defaultRunner.Run(ctx, cmd)
}

// Exec builds a Command from args and options and runs it with the package
// default runner. A nonzero exit is an error unless WithThrowOnError(false)
// is given; output is captured unless WithStreamOutput is given.
func Exec(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	return defaultRunner.Run(ctx, NewCommand(args, opts...))
}

// Exec builds a Command from args and options and runs it with r.
func (r *Runner) Exec(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	return r.Run(ctx, NewCommand(args, opts...))
}

// Package logger provides structured logging for execkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. Logs go to stderr by
// default so they never interleave with a streamed child's stdout.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.Get("process")
//	log.Debug("child exited", logger.Fields(logger.FieldExitCode, 0))
package logger

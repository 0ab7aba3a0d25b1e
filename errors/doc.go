// Package errors provides the structured error type shared by execkit
// packages. An AppError carries a machine-readable code, a human-readable
// message, optional details and the underlying cause.
package errors

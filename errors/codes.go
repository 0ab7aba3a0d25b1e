package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeInvalidInput indicates the command or its options are invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Execution errors
const (
	// ErrCodeStartFailed indicates the child process could not be started.
	ErrCodeStartFailed ErrorCode = "START_FAILED"
	// ErrCodeNonZeroExit indicates the child process exited with a nonzero code.
	ErrCodeNonZeroExit ErrorCode = "NON_ZERO_EXIT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Nothing is retried automatically; a child runs at most once per call.
// Retryable only advises the caller.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeNonZeroExit: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

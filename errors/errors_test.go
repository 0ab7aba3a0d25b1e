package errors

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad command")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidInput, err.Code)
	}
	if err.Message != "bad command" {
		t.Errorf("expected message 'bad command', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("INVALID_INPUT should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeNonZeroExit, "exit 1")
	if !err.Retryable {
		t.Error("NON_ZERO_EXIT should be retryable")
	}
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("args", "must not be empty")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "args" {
		t.Errorf("expected field=args, got %v", err.Details["field"])
	}
	if !strings.Contains(err.Message, "must not be empty") {
		t.Errorf("expected reason in message, got %q", err.Message)
	}
}

func TestAppError_InvalidInput_EmptyField(t *testing.T) {
	err := InvalidInput("", "whatever")
	if _, ok := err.Details["field"]; ok {
		t.Error("expected no 'field' key in details when field is empty")
	}
}

func TestAppError_StartFailed_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("exec: %q: %w", "nope", exec.ErrNotFound)
	err := StartFailed([]string{"nope", "-x"}, cause)
	if err.Code != ErrCodeStartFailed {
		t.Errorf("expected START_FAILED, got %s", err.Code)
	}
	if !stderrors.Is(err, exec.ErrNotFound) {
		t.Error("expected exec.ErrNotFound in cause chain")
	}
	if err.Details["command"] != "nope -x" {
		t.Errorf("expected command detail 'nope -x', got %v", err.Details["command"])
	}
	if !strings.Contains(err.Message, `"nope"`) {
		t.Errorf("expected executable in message, got %q", err.Message)
	}
}

func TestAppError_StartFailed_NoArgs(t *testing.T) {
	err := StartFailed(nil, fmt.Errorf("boom"))
	if err.Message != `Failed to start ""` {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAppError_NonZeroExit(t *testing.T) {
	err := NonZeroExit(42)
	if err.Code != ErrCodeNonZeroExit {
		t.Errorf("expected NON_ZERO_EXIT, got %s", err.Code)
	}
	if err.Details["exit_code"] != 42 {
		t.Errorf("expected exit_code=42, got %v", err.Details["exit_code"])
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("expected exit code in Error(), got %q", err.Error())
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := MissingField("args").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := MissingField("args").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["field"] != "args" {
		t.Error("expected original details to be preserved")
	}
}

func TestAppError_WithDetails_Nil(t *testing.T) {
	err := Internal(nil).WithDetails(nil)
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized even with nil input")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Internal(cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if Validation("x").Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"InvalidInput", InvalidInput("dir", "bad"), ErrCodeInvalidInput, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, false},
		{"MissingField", MissingField("args"), ErrCodeMissingField, false},
		{"StartFailed", StartFailed([]string{"x"}, nil), ErrCodeStartFailed, false},
		{"NonZeroExit", NonZeroExit(1), ErrCodeNonZeroExit, true},
		{"Internal", Internal(nil), ErrCodeInternal, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := StartFailed([]string{"missing"}, fmt.Errorf("not found"))
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeStartFailed {
		t.Errorf("expected code START_FAILED in response, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "not found" {
		t.Errorf("expected cause text in response, got %q", resp.Error.Cause)
	}
	if resp.Error.Details["command"] != "missing" {
		t.Error("expected command=missing in response details")
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", Internal(nil))

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := NonZeroExit(3)
	if Wrap(fmt.Errorf("outer: %w", orig)) != orig {
		t.Error("Wrap should return the AppError found in the chain")
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal || got.Cause != plain {
		t.Errorf("expected INTERNAL_ERROR wrapping the plain error, got %+v", got)
	}
}

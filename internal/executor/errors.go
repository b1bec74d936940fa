package executor

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

// Error codes raised by the executor.
const (
	ErrCodeDuplicateKey   Code = "DUPLICATE_KEY"
	ErrCodeNonexistentKey Code = "NONEXISTENT_KEY"
	ErrCodeEmptyFetchSet  Code = "EMPTY_FETCH_SET"
	ErrCodeCycleDetected  Code = "CYCLE_DETECTED"
	ErrCodeMissingInput   Code = "MISSING_INPUT"
	ErrCodeLayerFailed    Code = "LAYER_FAILED"
)

// Error is a structured executor error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if it has none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Privilege and consent
	ErrPermission ErrorCode = "PERMISSION"
	ErrDeclined   ErrorCode = "DECLINED"

	// Package state
	ErrMissingPackage    ErrorCode = "MISSING_PACKAGE"
	ErrUnsupportedDistro ErrorCode = "UNSUPPORTED_DISTRO"

	// External commands
	ErrCommandFailed ErrorCode = "COMMAND_FAILED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
)

// ToolzError represents a structured error with code and details
type ToolzError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ToolzError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ToolzError) Unwrap() error {
	return e.Wrapped
}

// Is matches another ToolzError by code
func (e *ToolzError) Is(target error) bool {
	var targetErr *ToolzError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ToolzError with the given code and message
func New(code ErrorCode, message string) *ToolzError {
	return &ToolzError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ToolzError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ToolzError {
	return &ToolzError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a ToolzError
func Wrap(err error, code ErrorCode, message string) *ToolzError {
	if err == nil {
		return nil
	}
	return &ToolzError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ToolzError {
	if err == nil {
		return nil
	}
	return &ToolzError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *ToolzError) WithDetail(key string, value interface{}) *ToolzError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var toolzErr *ToolzError
	if errors.As(err, &toolzErr) {
		return toolzErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a ToolzError
func GetErrorCode(err error) ErrorCode {
	var toolzErr *ToolzError
	if errors.As(err, &toolzErr) {
		return toolzErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a ToolzError
func GetErrorDetails(err error) map[string]interface{} {
	var toolzErr *ToolzError
	if errors.As(err, &toolzErr) {
		return toolzErr.Details
	}
	return nil
}

// ExitCode maps an error to a process exit status. Scripts only ever
// distinguish success from failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Message returns the human message of err without its code, as printed
// after "E:" on the terminal
func Message(err error) string {
	if err == nil {
		return ""
	}
	var toolzErr *ToolzError
	if errors.As(err, &toolzErr) {
		return toolzErr.Message
	}
	return err.Error()
}

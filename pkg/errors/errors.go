// Package errors provides structured error types for socomo.
//
// This package defines error codes and types that enable:
//   - Distinguishing recoverable per-artifact failures from fatal run failures
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages in the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input or configuration validation failures
//   - UNREADABLE_*: Per-artifact failures, recovered as diagnostics
//   - EMPTY_*, NO_*, BROKEN_*: Structural failures that abort an analysis run
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeEmptyCodebase, "no artifact could be read in %s", dir)
//	if errors.Is(err, errors.ErrCodeEmptyCodebase) {
//	    // Nothing to analyze
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeUnreadableArtifact, origErr, "read %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidFormat       Code = "INVALID_FORMAT"
	ErrCodeInvalidPath         Code = "INVALID_PATH"
	ErrCodeInvalidGroupingRule Code = "INVALID_GROUPING_RULE"

	// Per-artifact errors (recovered locally)
	ErrCodeUnreadableArtifact Code = "UNREADABLE_ARTIFACT"

	// Structural errors (abort the run)
	ErrCodeEmptyCodebase    Code = "EMPTY_CODEBASE"
	ErrCodeNoLevelsProduced Code = "NO_LEVELS_PRODUCED"
	ErrCodeBrokenPartition  Code = "BROKEN_PARTITION"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
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

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatal reports whether err aborts an analysis run. Unreadable artifacts
// are the only recoverable failure; everything else ends the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetCode(err) != ErrCodeUnreadableArtifact
}

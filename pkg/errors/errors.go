// Package errors provides structured error types for wafermap.
//
// Every failure the overlay pipeline can report carries a machine-readable
// [Code], so callers can decide how far a failure reaches: a missing or empty
// station file only drops that station, an unknown station only drops it from
// the merge, and a wafer without any usable source is abandoned while the rest
// of a batch continues.
//
// # Error Codes
//
// Codes follow a loose naming convention:
//   - *_SOURCE, UNKNOWN_STATION: a single station is excluded
//   - NO_VALID_SOURCES: a single wafer is abandoned
//   - FORMAT_ERROR, DIE_MISMATCH: a single file or output fails
//   - INVALID_*: configuration or request validation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownStation, "no priority for station %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownStation) {
//	    // warn and continue
//	}
//
//	err := errors.Wrap(errors.ErrCodeMissingSource, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Per-station failures: warn, exclude the station, continue.
	ErrCodeMissingSource  Code = "MISSING_SOURCE"
	ErrCodeEmptySource    Code = "EMPTY_SOURCE"
	ErrCodeUnknownStation Code = "UNKNOWN_STATION"

	// Per-wafer failure: abort this wafer only.
	ErrCodeNoValidSources Code = "NO_VALID_SOURCES"

	// Per-record failure. Never returned to callers; malformed sparse
	// records are counted and skipped.
	ErrCodeMalformedRecord Code = "MALFORMED_RECORD"

	// Per-file failures.
	ErrCodeFormat      Code = "FORMAT_ERROR"
	ErrCodeDieMismatch Code = "DIE_MISMATCH"

	// Validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidPriority Code = "INVALID_PRIORITY"
	ErrCodeInvalidPolicy   Code = "INVALID_POLICY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidStation  Code = "INVALID_STATION"

	// Lookup errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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

// Scope describes how far a failure with the given code reaches.
type Scope int

const (
	ScopeNone    Scope = iota // not a wafermap error
	ScopeRecord               // one sparse record
	ScopeStation              // one station source
	ScopeFile                 // one input or output file
	ScopeWafer                // one wafer of a batch
	ScopeRun                  // the whole invocation
)

// ScopeOf reports the failure scope of err's outermost code.
func ScopeOf(err error) Scope {
	switch GetCode(err) {
	case "":
		return ScopeNone
	case ErrCodeMalformedRecord:
		return ScopeRecord
	case ErrCodeMissingSource, ErrCodeEmptySource, ErrCodeUnknownStation:
		return ScopeStation
	case ErrCodeFormat, ErrCodeDieMismatch:
		return ScopeFile
	case ErrCodeNoValidSources, ErrCodeInvalidPriority:
		return ScopeWafer
	default:
		return ScopeRun
	}
}

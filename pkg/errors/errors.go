// Package errors provides the unified error type and factory functions for
// MultiNLU. Every layer (intelligence, application, infrastructure,
// interfaces) reports failures as *AppError so that HTTP responses, logs and
// metrics all see the same code.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout MultiNLU.
// It supports errors.Is / errors.As / errors.Unwrap through Cause.
//
// Usage:
//
//	return errors.UnknownLocale("fr")
//	return errors.Wrap(err, errors.ErrCodeParseFailed, "model server rejected request")
//	return errors.InvalidParam("text is required").WithDetail("field=text")
type AppError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is the human-readable description returned to API callers.
	Message string

	// Detail carries supplementary context (locale, path, offset).
	Detail string

	// Cause is the underlying error.
	Cause error

	// Stack is captured by the factories and never included in Error().
	Stack string
}

// Error formats as "[<code>] <message>: <detail>"; the detail segment is
// omitted when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// HTTPStatus returns the HTTP status mapped to the error code.
func (e *AppError) HTTPStatus() int {
	return HTTPStatusForCode(e.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.
// If err is nil, Wrap returns nil. When err is already an *AppError and code
// is CodeUnknown the original code is preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain carries CodeNotFound or
// ErrCodeUnknownLocale.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound) || IsCode(err, ErrCodeUnknownLocale)
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
// CodeOK is returned for nil and CodeUnknown when no *AppError is present.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// As is a thin re-export of the standard library helper so callers that
// import this package under the name "errors" keep access to it.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is re-exports errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factories
// ─────────────────────────────────────────────────────────────────────────────

// NotFound constructs a CodeNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Stack: captureStack(1)}
}

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// MalformedTaxonomy reports a taxonomy document that is not valid JSON or
// does not have the groups/entities/values shape.
func MalformedTaxonomy(detail string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedTaxonomy,
		Message: "malformed entity taxonomy",
		Detail:  detail,
		Stack:   captureStack(1),
	}
}

// UnknownLocale reports a locale that has no slot. The message matches the
// public API text "Locale <code> not found".
func UnknownLocale(code string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownLocale,
		Message: fmt.Sprintf("Locale %s not found", code),
		Stack:   captureStack(1),
	}
}

// ModelLoadFailed reports a locale whose loader failed. The cause is kept
// for errors.Is and shown as the detail.
func ModelLoadFailed(code string, cause error) *AppError {
	ae := &AppError{
		Code:    ErrCodeModelLoadFailed,
		Message: fmt.Sprintf("model for locale %s failed to load", code),
		Cause:   cause,
		Stack:   captureStack(1),
	}
	if cause != nil {
		ae.Detail = cause.Error()
	}
	return ae
}

//Personal.AI order the ending

// Package errors carries a numeric code on every error so callers can branch
// on the failure class without matching message strings.
//
// Codes are grouped by the subsystem that raises them:
//   - 1-99 general, including ErrCodeUnknown for foreign errors
//   - 100-199 validation of parameters and configuration
//   - 200-299 data access, missing bars and failed queries
//   - 300-399 indicator lookup and calculation
//   - 400-499 strategy loading, configuration and runtime
//   - 500-599 order placement and position management
//   - 600-699 backtest engine state
//   - 700-799 market data download and parsing
//   - 800-899 chart script generation
//
// Typical use:
//
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no bars for %s", symbol)
//
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", cause)
//
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
//
// InsufficientDataError is separate from the coded errors: indicators return
// it while their lookback window is still filling, and strategies treat it as
// a signal to wait rather than a failure.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap attaches a code and message to an existing error. The cause stays
// reachable through Unwrap.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf is Wrap with a formatted message. The cause comes before the format
// so it is not mistaken for a format argument.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error in the chain, or
// ErrCodeUnknown when the chain holds no coded error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError reports that a calculation was asked for more history
// than the data source holds, which is the normal state while an indicator
// lookback window fills at the start of a run.
type InsufficientDataError struct {
	Required int    // data points the calculation needs
	Actual   int    // data points available
	Symbol   string // symbol context, may be empty
	Message  string
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError reports whether an InsufficientDataError sits
// anywhere in the chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique identifier for specific error conditions in Vigil.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001

	// Process table
	ErrCodeEnumeration ErrorCode = 2001

	// Launch
	ErrCodeLaunchPathInvalid ErrorCode = 3001
	ErrCodeSpawnFailed       ErrorCode = 3002

	// Stop
	ErrCodeStopNotFound       ErrorCode = 4001
	ErrCodeStopPartialTimeout ErrorCode = 4002
	ErrCodeNoSuchProcess      ErrorCode = 4003

	// Control surface
	ErrCodeControlUnavailable ErrorCode = 5001
	ErrCodeControlRejected    ErrorCode = 5002
	ErrCodeAlreadyRunning     ErrorCode = 5003
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrConfigInvalid  = &VigilError{Code: ErrCodeConfigInvalid}
	ErrEnumeration    = &VigilError{Code: ErrCodeEnumeration}
	ErrPathInvalid    = &VigilError{Code: ErrCodeLaunchPathInvalid}
	ErrSpawnFailed    = &VigilError{Code: ErrCodeSpawnFailed}
	ErrNotFound       = &VigilError{Code: ErrCodeStopNotFound}
	ErrPartialTimeout = &VigilError{Code: ErrCodeStopPartialTimeout}
	ErrNoSuchProcess  = &VigilError{Code: ErrCodeNoSuchProcess}
	ErrAlreadyRunning = &VigilError{Code: ErrCodeAlreadyRunning}

	ErrControlUnavailable = &VigilError{Code: ErrCodeControlUnavailable}
	ErrControlRejected    = &VigilError{Code: ErrCodeControlRejected}
)

// VigilError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type VigilError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *VigilError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *VigilError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a VigilError carrying the same code.
func (e *VigilError) Is(target error) bool {
	t, ok := target.(*VigilError)
	return ok && t.Code == e.Code
}

// New creates a new VigilError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &VigilError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf returns the code of the first VigilError in err's chain, or ErrCodeUnknown.
func CodeOf(err error) ErrorCode {
	var ve *VigilError
	if stderrors.As(err, &ve) {
		return ve.Code
	}
	return ErrCodeUnknown
}

// Personal.AI order the ending

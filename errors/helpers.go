package errors

import (
	stderrors "errors"
	"fmt"
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap normalizes any error into an AppError. AppErrors pass through
// unchanged; everything else becomes an internal error with the original
// error as its cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// FormatResourceError builds a NotFound error for a resource identified by
// an arbitrary id value.
func FormatResourceError(resource string, id any) *AppError {
	return NotFound(resource, fmt.Sprintf("%v", id))
}

// IsRetryable reports whether err may be retried. Typed errors consult
// their code; untyped errors stay retryable so raw I/O failures keep
// their retry budget.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return IsRetryableCode(appErr.Code)
	}
	return true
}

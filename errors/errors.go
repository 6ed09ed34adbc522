package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Retryable: false,
		Details:   map[string]any{"field": field},
	}
}

// InvalidFormat creates a new AppError for an invalid field format.
func InvalidFormat(field, expectedFormat string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidFormat, Message: fmt.Sprintf("Invalid format for %s. Expected: %s", field, expectedFormat),
		Retryable: false,
		Details:   map[string]any{"field": field, "expected_format": expectedFormat},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Retryable: false, Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		Retryable: false,
		Details:   map[string]any{"resource": resource},
	}
}

// Dependency creates a new AppError for an unsatisfiable upstream dependency,
// such as a missing or empty value manifest.
func Dependency(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDependency, Message: fmt.Sprintf("Dependency cannot be satisfied: %s", reason),
		Retryable: false, Cause: cause,
	}
}

// Security creates a new AppError for a failed security precondition,
// such as an absent or unparseable encryption key.
func Security(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSecurity, Message: fmt.Sprintf("Security precondition failed: %s", reason),
		Retryable: false, Cause: cause,
	}
}

// LocalResource creates a new AppError for a local file that could not be
// registered or resolved.
func LocalResource(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeLocalResource, Message: fmt.Sprintf("Local resource %s cannot be used.", path),
		Retryable: false,
		Details:   map[string]any{"path": path}, Cause: cause,
	}
}

// Graph creates a new AppError for an inconsistent or unbuildable task graph.
func Graph(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeGraph, Message: fmt.Sprintf("Task graph error: %s", reason),
		Retryable: false, Cause: cause,
	}
}

// StoreError creates a new AppError for a run store error.
func StoreError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStore, Message: "A run store error occurred. Please try again.",
		Retryable: true, Cause: cause,
	}
}

// BrokerError creates a new AppError for an error from the submission broker.
func BrokerError(broker string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeBroker, Message: fmt.Sprintf("The %s broker encountered an error. Please try again.", broker),
		Retryable: true,
		Details:   map[string]any{"broker": broker}, Cause: cause,
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long. Please try again.",
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Retryable: false, Cause: cause,
	}
}

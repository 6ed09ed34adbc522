package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Invocation error codes.
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Workflow compilation error codes.
const (
	ErrCodeDependency    ErrorCode = "DEPENDENCY_ERROR"
	ErrCodeSecurity      ErrorCode = "SECURITY_ERROR"
	ErrCodeLocalResource ErrorCode = "LOCAL_RESOURCE_ERROR"
	ErrCodeGraph         ErrorCode = "GRAPH_ERROR"
)

// Infrastructure error codes.
const (
	ErrCodeStore       ErrorCode = "STORE_ERROR"
	ErrCodeBroker      ErrorCode = "BROKER_ERROR"
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// retryableCodes is the set of codes whose operations may be retried.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeStore:       true,
	ErrCodeBroker:      true,
	ErrCodeTimeout:     true,
	ErrCodeUnavailable: true,
}

// IsRetryableCode reports whether the given error code is retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

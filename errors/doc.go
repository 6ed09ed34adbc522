// Package errors provides unified error handling for workflow tooling.
// It implements structured error types with machine-readable codes and
// retryable detection.
package errors

// Package errors defines the typed error taxonomy for the retrieval core.
// Hosts (HTTP handlers, CLI) map codes to their own response format.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for retrieval operations.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates bad query text, user-correctable.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeEmbeddingUnavailable indicates the embedding provider failed.
	// Recoverable: retrieval degrades to lexical-only search.
	ErrCodeEmbeddingUnavailable ErrorCode = "EMBEDDING_UNAVAILABLE"
	// ErrCodeRetrievalFailed indicates the lexical retrieval path failed.
	// Fatal to the call: no trustworthy results can be produced.
	ErrCodeRetrievalFailed ErrorCode = "RETRIEVAL_FAILED"
	// ErrCodePackingOverflow indicates a context budget misconfiguration.
	// Programming-error class, not a runtime condition to handle gracefully.
	ErrCodePackingOverflow ErrorCode = "PACKING_OVERFLOW"
	// ErrCodeNotFound indicates a referenced note does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimitExceeded indicates the embedding rate limit was hit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Error represents a structured error for retrieval operations.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *Error) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidInput creates an invalid input error.
func InvalidInput(msg string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: msg}
}

// EmbeddingUnavailable creates an embedding unavailable error.
func EmbeddingUnavailable(msg string, cause error) *Error {
	return &Error{Code: ErrCodeEmbeddingUnavailable, Message: msg, Cause: cause}
}

// RetrievalFailed creates a retrieval failed error.
func RetrievalFailed(msg string, cause error) *Error {
	return &Error{Code: ErrCodeRetrievalFailed, Message: msg, Cause: cause}
}

// PackingOverflow creates a packing overflow error.
func PackingOverflow(msg string) *Error {
	return &Error{Code: ErrCodePackingOverflow, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *Error {
	return &Error{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if rErr, ok := err.(*Error); ok {
		return rErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a Error.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if rErr, ok := err.(*Error); ok {
		return rErr.Code
	}
	return defaultCode
}

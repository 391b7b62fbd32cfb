package errors

import (
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeTransient      ErrCode = "TRANSIENT"
	ErrCodeRateLimited    ErrCode = "RATE_LIMITED"
	ErrCodeRetryExhausted ErrCode = "RETRY_EXHAUSTED"
	ErrCodeStore          ErrCode = "STORE_ERROR"
	ErrCodeNotFound       ErrCode = "NOT_FOUND"
	ErrCodeBadRequest     ErrCode = "BAD_REQUEST"
	ErrCodeInternal       ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error

	// ResetAt is set on rate-limit errors to the time the limit clears
	ResetAt time.Time
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewTransientError creates an error for a retryable delivery failure
func NewTransientError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransient,
		Message: message,
		Err:     err,
	}
}

// NewRateLimitedError creates an error for a backend rate-limit response
func NewRateLimitedError(message string, resetAt time.Time) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
		ResetAt: resetAt,
	}
}

// NewRetryExhaustedError wraps the last failure after the attempt cap
func NewRetryExhaustedError(attempts int, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRetryExhausted,
		Message: fmt.Sprintf("delivery failed after %d attempts", attempts),
		Err:     err,
	}
}

// NewStoreError creates an error for a persistent-store failure
func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStore,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// IsTransient checks if the error is a retryable delivery failure
func IsTransient(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeTransient
	}
	return false
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeRateLimited
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeNotFound
	}
	return false
}

// IsBadRequest checks if the error is a bad request error
func IsBadRequest(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrCodeBadRequest
	}
	return false
}

// RateLimitResetAt extracts the reset time from a rate-limit error,
// or the zero time if err is not one.
func RateLimitResetAt(err error) time.Time {
	if appErr, ok := err.(*AppError); ok && appErr.Code == ErrCodeRateLimited {
		return appErr.ResetAt
	}
	return time.Time{}
}

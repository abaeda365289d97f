package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")
	ErrInternal         = errors.New("internal server error")
	ErrValidation       = errors.New("validation error")
	ErrPolicyBlocked    = errors.New("blocked by policy")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrExpired          = errors.New("resource expired")
	ErrTimeout          = errors.New("operation timed out")
)

// AppError represents an application error with context
type AppError struct {
	Err        error          `json:"-"`
	Message    string         `json:"message"`
	Code       string         `json:"code"`
	StatusCode int            `json:"status_code"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCode overrides the machine-readable code, keeping the kind.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Details:    map[string]any{"resource": resource},
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	d := make(map[string]any, len(details))
	for k, v := range details {
		d[k] = v
	}
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    d,
	}
}

// PolicyBlocked is returned when an operation needs explicit confirmation
// or clearance from another system before it can be retried.
func PolicyBlocked(message string) *AppError {
	return &AppError{
		Err:        ErrPolicyBlocked,
		Code:       "POLICY_BLOCKED",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// CapacityExceeded is returned when the requested scope is too large.
func CapacityExceeded(message string) *AppError {
	return &AppError{
		Err:        ErrCapacityExceeded,
		Code:       "CAPACITY_EXCEEDED",
		Message:    message,
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

func Expired(message string) *AppError {
	return &AppError{
		Err:        ErrExpired,
		Code:       "EXPIRED",
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Err:        ErrTimeout,
		Code:       "TIMEOUT",
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf returns the AppError code of err, or an empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

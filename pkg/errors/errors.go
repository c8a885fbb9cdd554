package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"
)

// AppError is the error type services return to handlers. Code and Message are safe to
// show to clients; Err is logged only.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func newAppError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func NotFound(resource string) *AppError {
	return newAppError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	e := NotFound(resource)
	e.Details = map[string]any{
		"resource": resource,
		"id":       id,
	}
	return e
}

// Validation carries per-field messages in Details.
func Validation(message string, details map[string]any) *AppError {
	e := newAppError(CodeValidation, http.StatusUnprocessableEntity, message)
	e.Details = details
	return e
}

func InvalidInput(message string) *AppError {
	return newAppError(CodeInvalidInput, http.StatusBadRequest, message)
}

func Unauthorized(message string) *AppError {
	return newAppError(CodeUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return newAppError(CodeForbidden, http.StatusForbidden, message)
}

// Conflict covers taken slots, double slot assignment and changes to cancelled bookings.
func Conflict(message string) *AppError {
	return newAppError(CodeConflict, http.StatusConflict, message)
}

func Internal(message string, err error) *AppError {
	e := newAppError(CodeInternal, http.StatusInternalServerError, message)
	e.Err = err
	return e
}

func RateLimited(message string) *AppError {
	return newAppError(CodeRateLimited, http.StatusTooManyRequests, message)
}

// IsAppError reports whether err or anything it wraps is an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError unwraps to the first *AppError, or wraps err as Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err carries an *AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

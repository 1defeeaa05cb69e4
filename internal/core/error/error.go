package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisTimeoutMessage describes a Redis call that ran out of time.
	RedisTimeoutMessage = "redis operation timed out"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// TurnFailedMessage is returned when the agent loop aborts a turn.
	TurnFailedMessage = "turn aborted"
	// InvalidRequestMessage is returned for malformed caller input.
	InvalidRequestMessage = "invalid request"
	// NotFoundMessage is returned when a requested resource does not exist.
	NotFoundMessage = "not found"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest wraps err as a 400.
func BadRequest(err error) *AppError {
	return New(err, http.StatusBadRequest, InvalidRequestMessage)
}

// NotFound wraps err as a 404.
func NotFound(err error) *AppError {
	return New(err, http.StatusNotFound, NotFoundMessage)
}

// TurnFailed wraps a loop-fatal error. The turn is reported, not retried.
func TurnFailed(err error) *AppError {
	return New(err, http.StatusUnprocessableEntity, TurnFailedMessage)
}

// StatusOf returns the HTTP status carried by the first AppError in err's chain,
// or 500 when there is none.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

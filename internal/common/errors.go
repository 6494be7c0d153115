package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
	ErrDatabase      = errors.New("database error")
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("configuration error")
	ErrInput         = errors.New("input document error")
)

const (
	CodeConfig   = "CONFIG_ERROR"
	CodeInput    = "INPUT_ERROR"
	CodeNotFound = "NOT_FOUND"
	CodeDatabase = "DATABASE_ERROR"
	CodeConflict = "CONFLICT"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ConfigurationError is fatal and reported before any page is processed.
func ConfigurationError(message string, cause error) *AppError {
	return NewAppError(CodeConfig, message, joinCause(ErrConfiguration, cause))
}

// InputError reports a missing or unreadable input document.
func InputError(message string, cause error) *AppError {
	return NewAppError(CodeInput, message, joinCause(ErrInput, cause))
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func DatabaseError(message string, cause error) *AppError {
	return NewAppError(CodeDatabase, message, joinCause(ErrDatabase, cause))
}

func ConflictError(message string) *AppError {
	return NewAppError(CodeConflict, message, ErrInvalidInput)
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsFatal reports whether err is one of the pre-flight failures that stop a run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInput)
}

// HTTPStatus maps application errors onto response codes for the job API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInput), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "Internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// MissingFieldsMessage is returned when a conversation turn lacks required fields.
	MissingFieldsMessage = "Missing required fields"
	// TranscriptRequiredMessage is returned when an analysis request has no transcript.
	TranscriptRequiredMessage = "Transcript is required"
	// InvalidBodyMessage is returned when a request body is not valid JSON.
	InvalidBodyMessage = "Invalid request body"
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

// Validation builds a 400 AppError for client-caused input problems.
func Validation(message string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// Internal wraps err as a 500 AppError carrying the generic system message.
func Internal(err error) *AppError {
	return &AppError{
		Err:     err,
		Status:  http.StatusInternalServerError,
		Message: SystemErrorMessage,
	}
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err, or the generic system message.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}

// IsValidation reports whether err is a client-caused 4xx AppError.
func IsValidation(err error) bool {
	status := StatusOf(err)
	return status >= 400 && status < 500
}

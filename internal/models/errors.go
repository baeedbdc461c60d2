package models

import "errors"

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    string   `json:"error"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Paths   []string `json:"failed_paths,omitempty"`
	Status  int      `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "authentication required", Status: 401}
	ErrInternal     = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
	ErrConflict = func(msg string) *AppError {
		return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
	}
	ErrBadGateway = func(msg string, paths []string) *AppError {
		return &AppError{Code: "DEVICE_ERROR", Message: msg, Paths: paths, Status: 502}
	}
	ErrUnavailable = func(msg string) *AppError {
		return &AppError{Code: "UNAVAILABLE", Message: msg, Status: 503}
	}
)

// Scene shape and range errors, shared by the engine and the preset store.
var (
	// ErrInvalidScene reports a snapshot without the four mandatory output
	// channels.
	ErrInvalidScene = errors.New("invalid scene")
	// ErrValidation reports a field that fails a type or range rule.
	ErrValidation = errors.New("validation failed")
)

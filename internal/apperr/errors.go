package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes used across services and handlers.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicate          = "DUPLICATE_KEY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is a coded error carrying the HTTP status it maps to.
type AppError struct {
	Code    string
	Message string
	Status  int
	Fields  []FieldError
	Err     error
}

// FieldError is a single violated constraint on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Message
		}
		return strings.Join(parts, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Status:  http.StatusNotFound,
	}
}

func Duplicate(message string) *AppError {
	return &AppError{
		Code:    CodeDuplicate,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// Validation carries every violated field, not just the first.
func Validation(fields []FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "validation failed",
		Status:  http.StatusBadRequest,
		Fields:  fields,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// InvalidCredentials covers login and password-change mismatches.
// These answer with 400, not 401; only token failures are 401.
func InvalidCredentials(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidCredentials,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Code:    CodeTokenExpired,
		Message: "token expired",
		Status:  http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Code:    CodeTokenInvalid,
		Message: "invalid token",
		Status:  http.StatusUnauthorized,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: fmt.Sprintf("unexpected error: %v", err),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

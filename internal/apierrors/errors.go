package apierrors

import (
	"fmt"
	"net/http"
)

// Error codes returned to API clients
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidAdvertiser  = "INVALID_ADVERTISER"
	CodeNotFound           = "NOT_FOUND"
	CodeConversionNotFound = "CONVERSION_NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// FieldDetail describes a single invalid field
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is an error that carries everything needed to answer an API client.
// The wrapped internal error is logged but never sent.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []FieldDetail
	internal   error
}

func (e *APIError) Error() string {
	if e.internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.internal
}

// BadRequest builds a 400 error
func BadRequest(code, message string, details ...FieldDetail) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// NotFound builds a 404 error
func NotFound(code, message string) *APIError {
	return &APIError{
		StatusCode: http.StatusNotFound,
		Code:       code,
		Message:    message,
	}
}

// ServiceUnavailable builds a 503 error wrapping the dependency failure
func ServiceUnavailable(code, message string, internalErr error) *APIError {
	return &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       code,
		Message:    message,
		internal:   internalErr,
	}
}

// InternalError builds a sanitized 500 error - never exposes internal details
func InternalError(internalErr error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		internal:   internalErr,
	}
}

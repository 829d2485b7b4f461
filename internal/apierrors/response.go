package apierrors

import (
	"errors"

	"cpa-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Package-level logger that uses context for observability
var logger = observability.NewLogger()

// ErrorResponse is the JSON structure returned to API clients for errors
type ErrorResponse struct {
	Error   string        `json:"error"`             // User-friendly error message
	Code    string        `json:"code,omitempty"`    // Machine-readable error code
	Details []FieldDetail `json:"details,omitempty"` // Per-field validation failures
}

// RespondWithError converts err to an APIError, logs it for correlation and
// sends a sanitized JSON response to the client.
//
//	if err != nil {
//	    apierrors.RespondWithError(c, err)
//	    return
//	}
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := MapError(err)
	respond(c, apiErr)
}

// RespondWithValidationError handles Gin binding/validation errors and returns
// per-field details. Use it when c.ShouldBindJSON or similar fails.
func RespondWithValidationError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		logger.InfoWithError(ctx, "Validation failed", err)
		respond(c, BadRequest(CodeInvalidInput, "Validation failed", FieldDetails(validationErrs)...))
		return
	}

	// Not a validation error - might be a JSON parsing error or other binding issue
	logger.InfoWithError(ctx, "Request binding failed", err)
	respond(c, BadRequest(CodeInvalidInput, "Invalid request format. Please check your JSON syntax."))
}

func respond(c *gin.Context, apiErr *APIError) {
	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
		observability.Field{Key: "error_message", Value: apiErr.Message},
	)
	if apiErr.StatusCode >= 500 {
		logger.Error(ctx, "API error response", apiErr.internal)
	} else {
		logger.Info(ctx, "API error response")
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

package apierrors

import (
	"context"
	"errors"

	"cpa-server/internal/conversions/processor"
	"cpa-server/internal/store"
)

// MapError converts domain/processor errors to APIErrors.
//
// If the error is already an APIError, it returns it as-is.
// If the error is unknown, it returns a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var inputErr *processor.InputError
	if errors.As(err, &inputErr) {
		details := make([]FieldDetail, 0, len(inputErr.Fields))
		for _, f := range inputErr.Fields {
			details = append(details, FieldDetail{Field: f.Field, Message: f.Message})
		}
		return BadRequest(CodeInvalidInput, "Validation failed", details...)
	}

	switch {
	case errors.Is(err, processor.ErrInvalidInput):
		return BadRequest(CodeInvalidInput, "Invalid input")

	case errors.Is(err, processor.ErrInvalidAdvertiser):
		return BadRequest(CodeInvalidAdvertiser, "A valid advertiser id is required",
			FieldDetail{Field: "advertiser_id", Message: "advertiser_id must be a valid UUID"})

	case errors.Is(err, processor.ErrConversionNotFound):
		return NotFound(CodeConversionNotFound, "Conversion not found")

	case errors.Is(err, store.ErrNotFound):
		return NotFound(CodeNotFound, "Resource not found")

	case errors.Is(err, context.DeadlineExceeded):
		return ServiceUnavailable(CodeServiceUnavailable,
			"Service is temporarily unavailable. Please try again later.", err)

	default:
		return InternalError(err)
	}
}

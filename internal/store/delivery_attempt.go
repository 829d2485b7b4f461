package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateDeliveryAttemptParams represents one postback try, or a zero-attempt skip
type CreateDeliveryAttemptParams struct {
	ProfileID      uuid.UUID
	ConversionID   uuid.UUID
	Attempt        int
	MaxAttempts    int
	Success        bool
	RequestMethod  string
	RequestURL     string
	RequestBody    *string
	RequestHeaders map[string]string
	ResponseCode   *int
	ResponseBody   *string
	DurationMs     *int
	Error          *string
}

const sqlCreateDeliveryAttempt = `
INSERT INTO postback_deliveries (profile_id, conversion_id, attempt, max_attempts, success, request_method, request_url, request_body, request_headers, response_code, response_body, duration_ms, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, profile_id, conversion_id, attempt, max_attempts, success, request_method, request_url, request_body, request_headers, response_code, response_body, duration_ms, error, created_at
`

// CreateDeliveryAttempt appends a row to the delivery log
func (s *Store) CreateDeliveryAttempt(ctx context.Context, params CreateDeliveryAttemptParams) (DeliveryAttempt, error) {
	var attempt DeliveryAttempt
	err := s.db.GetContext(ctx, &attempt, sqlCreateDeliveryAttempt,
		params.ProfileID,
		params.ConversionID,
		params.Attempt,
		params.MaxAttempts,
		params.Success,
		params.RequestMethod,
		params.RequestURL,
		params.RequestBody,
		StringMap(params.RequestHeaders),
		params.ResponseCode,
		params.ResponseBody,
		params.DurationMs,
		params.Error)
	if err != nil {
		s.logger.Error(ctx, "failed to create delivery attempt", err)
		return DeliveryAttempt{}, fmt.Errorf("failed to create delivery attempt: %w", err)
	}
	return attempt, nil
}

const sqlListDeliveryAttemptsByConversion = `
SELECT id, profile_id, conversion_id, attempt, max_attempts, success, request_method, request_url, request_body, request_headers, response_code, response_body, duration_ms, error, created_at
FROM postback_deliveries
WHERE conversion_id = $1
ORDER BY created_at ASC, attempt ASC
LIMIT $2 OFFSET $3
`

// ListDeliveryAttemptsByConversion retrieves the delivery log of a conversion
func (s *Store) ListDeliveryAttemptsByConversion(ctx context.Context, conversionID uuid.UUID, limit, offset int) ([]DeliveryAttempt, error) {
	var attempts []DeliveryAttempt
	err := s.db.SelectContext(ctx, &attempts, sqlListDeliveryAttemptsByConversion, conversionID, limit, offset)
	if err != nil {
		s.logger.Error(ctx, "failed to list delivery attempts", err)
		return nil, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	return attempts, nil
}

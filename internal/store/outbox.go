package store

import (
	"context"
	"fmt"
	"time"
)

const sqlListUnpublishedOutbox = `
SELECT id, conversion_id, event_type, payload, attempts, created_at, dispatched_at, published_at
FROM conversion_outbox
WHERE published_at IS NULL
  AND ((dispatched_at IS NULL AND created_at < $1) OR dispatched_at < $2)
ORDER BY id ASC
LIMIT $3
`

// ListUnpublishedOutbox retrieves unpublished outbox events that were never
// dispatched and were created before createdBefore, or whose dispatch lease
// started before dispatchedBefore
func (s *Store) ListUnpublishedOutbox(ctx context.Context, createdBefore, dispatchedBefore time.Time, limit int) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := s.db.SelectContext(ctx, &events, sqlListUnpublishedOutbox, createdBefore, dispatchedBefore, limit)
	if err != nil {
		s.logger.Error(ctx, "failed to list unpublished outbox events", err)
		return nil, fmt.Errorf("failed to list unpublished outbox events: %w", err)
	}
	return events, nil
}

const sqlMarkOutboxDispatched = `
UPDATE conversion_outbox
SET dispatched_at = CURRENT_TIMESTAMP,
    attempts = attempts + 1
WHERE id = $1 AND published_at IS NULL
`

// MarkOutboxDispatched records that the task was handed to the dispatcher and
// starts its lease. The row stays unpublished until the dispatcher settles it.
func (s *Store) MarkOutboxDispatched(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, sqlMarkOutboxDispatched, id)
	if err != nil {
		s.logger.Error(ctx, "failed to mark outbox event dispatched", err)
		return fmt.Errorf("failed to mark outbox event dispatched: %w", err)
	}
	return nil
}

const sqlMarkOutboxPublished = `
UPDATE conversion_outbox
SET published_at = CURRENT_TIMESTAMP
WHERE id = $1 AND published_at IS NULL
`

// MarkOutboxPublished records that the dispatcher settled every postback of
// the event
func (s *Store) MarkOutboxPublished(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, sqlMarkOutboxPublished, id)
	if err != nil {
		s.logger.Error(ctx, "failed to mark outbox event published", err)
		return fmt.Errorf("failed to mark outbox event published: %w", err)
	}
	return nil
}

const sqlIncrementOutboxAttempts = `
UPDATE conversion_outbox
SET attempts = attempts + 1
WHERE id = $1
`

// IncrementOutboxAttempts counts a failed publish
func (s *Store) IncrementOutboxAttempts(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, sqlIncrementOutboxAttempts, id)
	if err != nil {
		s.logger.Error(ctx, "failed to increment outbox attempts", err)
		return fmt.Errorf("failed to increment outbox attempts: %w", err)
	}
	return nil
}

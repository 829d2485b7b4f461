// Package publisher hands delivery tasks to the dispatcher, either onto the
// in-process worker pool or through Kafka.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"cpa-server/internal/clients/kafka"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"
)

// Publisher accepts a delivery task. A nil error means the task will be
// processed and its outbox row may be marked published.
type Publisher interface {
	Publish(ctx context.Context, task workers.Task) error
}

// Submitter queues tasks without blocking
type Submitter interface {
	TrySubmit(task workers.Task) error
}

// Direct submits tasks to an in-process worker pool
type Direct struct {
	pool    Submitter
	logger  *observability.Logger
	metrics *metrics.Metrics
}

func NewDirect(pool Submitter, logger *observability.Logger, m *metrics.Metrics) *Direct {
	return &Direct{pool: pool, logger: logger, metrics: m}
}

// Publish never blocks. A full queue is reported as an error and left to the
// outbox relay.
func (d *Direct) Publish(ctx context.Context, task workers.Task) error {
	if err := d.pool.TrySubmit(task); err != nil {
		if errors.Is(err, workers.ErrQueueFull) {
			d.metrics.QueueRejected()
			d.logger.Warn(ctx, "dispatcher queue full, leaving task to the outbox relay")
		}
		return fmt.Errorf("failed to submit delivery task: %w", err)
	}
	return nil
}

// MessageProducer writes keyed messages to Kafka
type MessageProducer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka publishes tasks to the delivery topic keyed by conversion id. Keying
// groups a conversion's tasks on one partition but does not order their
// delivery: consumer workers run a partition's messages concurrently and the
// outbox relay may republish an older snapshot. Each task carries the full
// conversion snapshot, so receivers settle on the latest status by txid.
type Kafka struct {
	producer MessageProducer
}

func NewKafka(producer MessageProducer) *Kafka {
	return &Kafka{producer: producer}
}

func (k *Kafka) Publish(ctx context.Context, task workers.Task) error {
	value, err := task.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode delivery task: %w", err)
	}

	return k.producer.Publish(ctx, kafka.Message{
		Key:   task.Conversion.ID.String(),
		Value: value,
		Headers: map[string]string{
			"event_type":    store.OutboxEventConversionChanged,
			"advertiser_id": task.Conversion.AdvertiserID.String(),
		},
	})
}

// Package outbox republishes delivery tasks whose outbox rows were never
// settled. A row is published only after the dispatcher finished its
// postbacks, so a crash between commit and publish, a lost in-memory task or a
// failed dispatch all end with the task being handed out again.
package outbox

//go:generate go run go.uber.org/mock/mockgen@latest -source=relay.go -destination=mocks_test.go -package=outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cpa-server/internal/clock"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"
)

// OutboxStore reads and updates outbox rows
type OutboxStore interface {
	ListUnpublishedOutbox(ctx context.Context, createdBefore, dispatchedBefore time.Time, limit int) ([]store.OutboxEvent, error)
	MarkOutboxDispatched(ctx context.Context, id int64) error
	IncrementOutboxAttempts(ctx context.Context, id int64) error
}

// TaskPublisher hands a task to the dispatcher
type TaskPublisher interface {
	Publish(ctx context.Context, task workers.Task) error
}

// Config controls the relay schedule. Grace applies to rows that never
// reached the dispatcher, Lease to rows handed out but not yet settled.
type Config struct {
	Interval  time.Duration
	Grace     time.Duration
	Lease     time.Duration
	BatchSize int
}

// Relay periodically republishes stale outbox rows
type Relay struct {
	store     OutboxStore
	publisher TaskPublisher
	clock     clock.Clock
	logger    *observability.Logger
	metrics   *metrics.Metrics
	config    Config
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func New(outboxStore OutboxStore, publisher TaskPublisher, clk clock.Clock, logger *observability.Logger, m *metrics.Metrics, config Config) *Relay {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Second
	}
	if config.Grace <= 0 {
		config.Grace = 30 * time.Second
	}
	if config.Lease <= 0 {
		config.Lease = 15 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Relay{
		store:     outboxStore,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   m,
		config:    config,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the relay until Stop is called or ctx ends
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info(ctx, "Starting outbox relay")

	r.runOnce(ctx)

	for {
		select {
		case <-r.clock.After(r.config.Interval):
			r.runOnce(ctx)
		case <-r.stopChan:
			r.logger.Info(ctx, "Stopping outbox relay")
			return
		case <-ctx.Done():
			r.logger.Info(ctx, "Context cancelled, stopping outbox relay")
			return
		}
	}
}

// Stop stops the relay loop
func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

func (r *Relay) runOnce(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error(ctx, "failed to republish outbox events", err)
	}
}

// RunOnce republishes one batch and returns how many rows were handed out
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	now := r.clock.Now()
	events, err := r.store.ListUnpublishedOutbox(ctx, now.Add(-r.config.Grace), now.Add(-r.config.Lease), r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list outbox events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := 0
	for _, event := range events {
		eventCtx := observability.WithFields(ctx,
			observability.Field{Key: "outbox_id", Value: event.ID},
			observability.Field{Key: "conversion_id", Value: event.ConversionID},
			observability.Field{Key: "outbox_attempts", Value: event.Attempts},
		)

		task, err := workers.TaskFromOutbox(event, now)
		if err != nil {
			r.logger.Error(eventCtx, "skipping undecodable outbox event", err)
			r.failed(eventCtx, event.ID)
			continue
		}

		if err := r.publisher.Publish(eventCtx, task); err != nil {
			r.logger.Error(eventCtx, "failed to republish outbox event", err)
			r.failed(eventCtx, event.ID)
			continue
		}

		r.metrics.OutboxRepublished(true)
		if err := r.store.MarkOutboxDispatched(eventCtx, event.ID); err != nil {
			r.logger.Error(eventCtx, "failed to renew outbox lease", err)
			continue
		}
		published++
	}

	r.logger.Info(ctx, fmt.Sprintf("republished %d of %d outbox events", published, len(events)))
	return published, nil
}

func (r *Relay) failed(ctx context.Context, id int64) {
	r.metrics.OutboxRepublished(false)
	if err := r.store.IncrementOutboxAttempts(ctx, id); err != nil {
		r.logger.Error(ctx, "failed to increment outbox attempts", err)
	}
}

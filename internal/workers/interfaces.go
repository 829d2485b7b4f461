package workers

import (
	"context"
	"errors"
)

var (
	// ErrQueueFull is returned by TrySubmit when no queue slot is free
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrPoolClosed is returned once the pool drains or stops
	ErrPoolClosed = errors.New("worker pool is shutting down")
)

// TaskProcessor handles delivery tasks.
// Implementations should be idempotent as tasks may be redelivered on failure.
type TaskProcessor interface {
	// Process handles a single task. A returned error prevents the Kafka
	// offset from being committed so the task is redelivered.
	Process(ctx context.Context, task Task) error

	// Name returns the processor name for logging and metrics.
	Name() string
}

// TaskConsumer reads tasks from Kafka and distributes them to workers.
type TaskConsumer interface {
	// Start begins consuming and blocks until Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the consumer, draining in-flight tasks.
	Stop()
}

// WorkerPool runs a bounded number of task workers.
type WorkerPool interface {
	// Start launches the workers.
	Start(ctx context.Context) error

	// Submit queues a task, blocking while the queue is full.
	Submit(ctx context.Context, task Task) error

	// TrySubmit queues a task without blocking. It returns ErrQueueFull when
	// the queue has no free slot.
	TrySubmit(task Task) error

	// Drain stops accepting tasks and waits for queued and in-flight tasks,
	// bounded by the drain timeout.
	Drain(ctx context.Context) error

	// Stop cancels all workers immediately.
	Stop()
}

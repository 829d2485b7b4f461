package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cpa-server/internal/observability"
)

// ProcessingResult is the outcome of one task.
type ProcessingResult struct {
	Task  Task
	Error error
}

// ResultCallback is called after each task is processed.
type ResultCallback func(result ProcessingResult)

// WorkerPoolConfig holds configuration for the worker pool.
type WorkerPoolConfig struct {
	// NumWorkers is the number of concurrent workers to run.
	NumWorkers int

	// QueueSize is the size of the task queue buffer.
	QueueSize int

	// DrainTimeout bounds how long Drain waits for queued and in-flight tasks.
	DrainTimeout time.Duration

	// OnResult is called after each task is processed (optional).
	OnResult ResultCallback
}

// DefaultWorkerPoolConfig returns sensible defaults for a worker pool.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		NumWorkers:   10,
		QueueSize:    100,
		DrainTimeout: 30 * time.Second,
	}
}

type pool struct {
	config    WorkerPoolConfig
	processor TaskProcessor
	logger    *observability.Logger

	tasks    chan Task
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup

	// mu is held for reading while a task is being queued so the task
	// channel is never closed under a sender.
	mu       sync.RWMutex
	started  bool
	draining bool
	stopped  bool
	cancelFn context.CancelFunc
}

// NewWorkerPool creates a new worker pool for processing tasks.
func NewWorkerPool(
	config WorkerPoolConfig,
	processor TaskProcessor,
	logger *observability.Logger,
) WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if config.NumWorkers <= 0 {
		config.NumWorkers = defaults.NumWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}

	return &pool{
		config:    config,
		processor: processor,
		logger:    logger,
		tasks:     make(chan Task, config.QueueSize),
		quit:      make(chan struct{}),
	}
}

// Start initializes the worker pool with N workers.
func (p *pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	if p.stopped {
		return fmt.Errorf("worker pool already stopped")
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancelFn = cancel
	p.started = true

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(workerCtx, i)
	}

	p.logger.Info(ctx, fmt.Sprintf("Started %d workers for %s processor",
		p.config.NumWorkers, p.processor.Name()))

	return nil
}

// Submit queues a task, blocking until a slot frees up or ctx ends.
func (p *pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.acceptingLocked(); err != nil {
		return err
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues a task if a slot is free.
func (p *pool) TrySubmit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.acceptingLocked(); err != nil {
		return err
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *pool) acceptingLocked() error {
	if !p.started {
		return fmt.Errorf("worker pool not started")
	}
	if p.draining || p.stopped {
		return ErrPoolClosed
	}
	return nil
}

// Drain stops accepting tasks and waits for queued and in-flight tasks.
func (p *pool) Drain(ctx context.Context) error {
	p.mu.RLock()
	started, draining := p.started, p.draining
	p.mu.RUnlock()
	if !started {
		return fmt.Errorf("worker pool not started")
	}
	if draining {
		return fmt.Errorf("worker pool already draining")
	}

	// Unblock pending Submit calls before taking the write lock.
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return fmt.Errorf("worker pool already draining")
	}
	p.draining = true
	if !p.stopped {
		close(p.tasks)
	}
	p.mu.Unlock()

	p.logger.Info(ctx, fmt.Sprintf("Draining worker pool for %s processor, waiting for %d queued tasks",
		p.processor.Name(), len(p.tasks)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	drainCtx, cancel := context.WithTimeout(ctx, p.config.DrainTimeout)
	defer cancel()

	select {
	case <-done:
		p.logger.Info(ctx, fmt.Sprintf("Successfully drained worker pool for %s processor",
			p.processor.Name()))
		return nil
	case <-drainCtx.Done():
		p.logger.Warn(ctx, fmt.Sprintf("Drain timeout exceeded for %s processor, forcing shutdown",
			p.processor.Name()))
		p.Stop()
		return fmt.Errorf("drain timeout exceeded")
	}
}

// Stop immediately stops all workers.
func (p *pool) Stop() {
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true

	if p.cancelFn != nil {
		p.cancelFn()
	}

	if !p.draining {
		close(p.tasks)
	}
}

func (p *pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	workerCtx := observability.WithFields(ctx,
		observability.Field{Key: "worker_id", Value: workerID},
		observability.Field{Key: "processor", Value: p.processor.Name()},
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug(workerCtx, fmt.Sprintf("Worker %d stopping: context cancelled", workerID))
			return

		case task, ok := <-p.tasks:
			if !ok {
				p.logger.Debug(workerCtx, fmt.Sprintf("Worker %d stopping: task queue closed", workerID))
				return
			}

			taskCtx := observability.WithFields(workerCtx,
				observability.Field{Key: "task_id", Value: task.ID},
				observability.Field{Key: "conversion_id", Value: task.Conversion.ID},
			)

			err := p.processor.Process(taskCtx, task)
			if err != nil {
				p.logger.Error(taskCtx, fmt.Sprintf("Worker %d failed to process task", workerID), err)
			}

			if p.config.OnResult != nil {
				p.config.OnResult(ProcessingResult{
					Task:  task,
					Error: err,
				})
			}
		}
	}
}

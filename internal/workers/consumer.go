package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cpa-server/internal/observability"

	kafkago "github.com/segmentio/kafka-go"
)

// ConsumerConfig holds configuration for the Kafka task consumer.
type ConsumerConfig struct {
	Brokers       []string
	ConsumerGroup string
	Topic         string

	// NumWorkers is the number of concurrent workers.
	NumWorkers int

	// QueueSize is the buffer between the fetch loop and the workers.
	QueueSize int

	// DrainTimeout is the maximum time to wait for in-flight tasks during shutdown.
	DrainTimeout time.Duration
}

// DefaultConsumerConfig returns sensible defaults for a consumer.
func DefaultConsumerConfig(brokers []string, consumerGroup, topic string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:       brokers,
		ConsumerGroup: consumerGroup,
		Topic:         topic,
		NumWorkers:    10,
		QueueSize:     100,
		DrainTimeout:  30 * time.Second,
	}
}

// offsetCommitter commits processed Kafka messages
type offsetCommitter interface {
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// taskWithMsg pairs a task with its Kafka message for offset tracking.
type taskWithMsg struct {
	task Task
	msg  kafkago.Message
}

type consumer struct {
	config    ConsumerConfig
	reader    *kafkago.Reader
	committer offsetCommitter
	processor TaskProcessor
	logger    *observability.Logger

	taskCh chan taskWithMsg

	cancelFetch context.CancelFunc
	doneCh      chan struct{}
	stopping    atomic.Bool
	stopOnce    sync.Once
}

// NewConsumer creates a Kafka consumer that hands delivery tasks to processor.
func NewConsumer(
	config ConsumerConfig,
	processor TaskProcessor,
	logger *observability.Logger,
) TaskConsumer {
	defaults := DefaultConsumerConfig(nil, "", "")
	if config.NumWorkers <= 0 {
		config.NumWorkers = defaults.NumWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}

	c := &consumer{
		config:    config,
		processor: processor,
		logger:    logger,
		taskCh:    make(chan taskWithMsg, config.QueueSize),
		doneCh:    make(chan struct{}),
	}

	c.reader = kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		StartOffset:    kafkago.FirstOffset,
		CommitInterval: 0, // Manual commit
	})
	c.committer = c.reader

	ctx := observability.WithFields(context.Background(),
		observability.Field{Key: "processor", Value: processor.Name()},
		observability.Field{Key: "consumer_group", Value: config.ConsumerGroup},
		observability.Field{Key: "topic", Value: config.Topic},
		observability.Field{Key: "num_workers", Value: config.NumWorkers},
	)
	logger.Info(ctx, fmt.Sprintf("Initialized consumer for %s processor", processor.Name()))

	return c
}

// Start consumes tasks and blocks until Stop is called.
func (c *consumer) Start(ctx context.Context) error {
	defer close(c.doneCh)

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFetch = cancel
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "consumer_group", Value: c.config.ConsumerGroup},
		observability.Field{Key: "topic", Value: c.config.Topic},
		observability.Field{Key: "processor", Value: c.processor.Name()},
	)

	c.logger.Info(ctx, fmt.Sprintf("Starting consumer for %s with %d workers",
		c.processor.Name(), c.config.NumWorkers))

	// Stop cancels fetching only; in-flight tasks run to completion.
	workerCtx := context.WithoutCancel(ctx)
	var workerWg sync.WaitGroup
	for i := 0; i < c.config.NumWorkers; i++ {
		workerWg.Add(1)
		go c.worker(&workerWg, i, workerCtx)
	}

	c.fetchLoop(ctx)

	close(c.taskCh)

	done := make(chan struct{})
	go func() {
		workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info(ctx, "All workers finished processing")
	case <-time.After(c.config.DrainTimeout):
		c.logger.Warn(ctx, "Drain timeout - some tasks may not have completed")
	}

	if err := c.reader.Close(); err != nil {
		c.logger.Error(ctx, "Failed to close Kafka reader", err)
	}

	c.logger.Info(ctx, fmt.Sprintf("Consumer stopped for %s", c.processor.Name()))
	return nil
}

func (c *consumer) fetchLoop(ctx context.Context) {
	for {
		if c.stopping.Load() {
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if c.stopping.Load() || ctx.Err() != nil {
				return
			}
			c.logger.Error(ctx, "Failed to fetch message from Kafka", err)
			time.Sleep(1 * time.Second)
			continue
		}

		task, err := DecodeTask(msg.Value)
		if err != nil {
			c.logger.Error(ctx, "Failed to decode task, skipping", err)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		select {
		case c.taskCh <- taskWithMsg{task: task, msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// worker processes tasks until the channel is closed. Offsets are committed
// only after a task finished without error. A later commit on the same
// partition still moves past a failed message, so recovery of failed tasks
// relies on their unpublished outbox rows, not on Kafka redelivery.
func (c *consumer) worker(wg *sync.WaitGroup, id int, ctx context.Context) {
	defer wg.Done()

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "worker_id", Value: id},
	)

	for t := range c.taskCh {
		taskCtx := observability.WithFields(ctx,
			observability.Field{Key: "task_id", Value: t.task.ID},
			observability.Field{Key: "conversion_id", Value: t.task.Conversion.ID},
			observability.Field{Key: "partition", Value: t.msg.Partition},
			observability.Field{Key: "offset", Value: t.msg.Offset},
		)

		err := c.processor.Process(taskCtx, t.task)
		if err != nil {
			c.logger.Error(taskCtx, "Failed to process task", err)
			continue
		}

		if c.committer != nil {
			if commitErr := c.committer.CommitMessages(context.Background(), t.msg); commitErr != nil {
				c.logger.Error(taskCtx, "Failed to commit offset", commitErr)
			}
		}
	}
}

// Stop signals the fetch loop to stop and returns once in-flight tasks have
// finished or the drain timeout passed.
func (c *consumer) Stop() {
	c.stopOnce.Do(func() {
		logCtx := observability.WithFields(context.Background(),
			observability.Field{Key: "processor", Value: c.processor.Name()},
		)
		c.logger.Info(logCtx, fmt.Sprintf("Stopping consumer for %s", c.processor.Name()))

		c.stopping.Store(true)

		if c.cancelFetch != nil {
			c.cancelFetch()
		}

		<-c.doneCh
	})
}

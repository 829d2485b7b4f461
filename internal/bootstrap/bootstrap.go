package bootstrap

import (
	"context"
	"fmt"

	"cpa-server/internal/clients/kafka"
	"cpa-server/internal/clients/redis"
	"cpa-server/internal/clock"
	"cpa-server/internal/config"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"

	conversionHandler "cpa-server/internal/conversions/handler"
	conversionProcessor "cpa-server/internal/conversions/processor"
	"cpa-server/internal/postbacks/delivery"
	"cpa-server/internal/postbacks/dispatcher"
	"cpa-server/internal/postbacks/outbox"
	"cpa-server/internal/postbacks/publisher"
	"cpa-server/internal/postbacks/registry"

	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store   store.Store
	Logger  *observability.Logger
	Metrics *metrics.Metrics

	// Handlers
	ConversionHandler *conversionHandler.Handler

	// Background workers. Pool is nil when tasks go through Kafka.
	Pool  workers.WorkerPool
	Relay *outbox.Relay

	// Clients (for cleanup)
	Redis         *redis.Client
	KafkaProducer *kafka.Producer
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:  logger,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	// Initialize database store
	var err error
	deps.Store, err = store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize profile cache
	deps.Redis, err = redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	clk := clock.Real{}

	// Initialize task transport
	var taskPublisher publisher.Publisher
	if cfg.Kafka.Enabled() {
		deps.KafkaProducer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		taskPublisher = publisher.NewKafka(deps.KafkaProducer)
		logger.Info(ctx, fmt.Sprintf("publishing delivery tasks to kafka topic %s", cfg.Kafka.Topic))
	} else {
		postbackDispatcher := NewDispatcher(cfg, &deps.Store, deps.Redis, clk, logger, deps.Metrics)
		deps.Pool = workers.NewWorkerPool(workers.WorkerPoolConfig{
			NumWorkers:   cfg.Dispatcher.Workers,
			QueueSize:    cfg.Dispatcher.QueueSize,
			DrainTimeout: cfg.Dispatcher.DrainTimeout,
		}, postbackDispatcher, logger)
		taskPublisher = publisher.NewDirect(deps.Pool, logger, deps.Metrics)
		logger.Info(ctx, fmt.Sprintf("dispatching delivery tasks in process with %d workers", cfg.Dispatcher.Workers))
	}

	// Initialize conversion processor and handler
	conversionProc := conversionProcessor.New(&deps.Store, taskPublisher, clk, logger, deps.Metrics)
	deps.ConversionHandler = conversionHandler.New(&conversionProc, logger)

	// Initialize outbox relay
	deps.Relay = outbox.New(&deps.Store, taskPublisher, clk, logger, deps.Metrics, outbox.Config{
		Interval:  cfg.Outbox.Interval,
		Grace:     cfg.Outbox.Grace,
		Lease:     cfg.Outbox.Lease,
		BatchSize: cfg.Outbox.BatchSize,
	})

	return deps, nil
}

// NewDispatcher wires the postback dispatcher over the store, the optional
// profile cache and a real HTTP client
func NewDispatcher(
	cfg *config.Config,
	st *store.Store,
	cache *redis.Client,
	clk clock.Clock,
	logger *observability.Logger,
	m *metrics.Metrics,
) *dispatcher.Dispatcher {
	var registryOpts []registry.Option
	if cache != nil {
		registryOpts = append(registryOpts, registry.WithCache(cache, cfg.Redis.ProfileCacheTTL))
	}
	profiles := registry.New(st, logger, registryOpts...)

	executor := delivery.New(delivery.NewHTTPClient(), st, clk, logger, delivery.WithMetrics(m))

	return dispatcher.New(profiles, st, st, executor, clk, logger, m)
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	ctx := context.Background()

	if d.KafkaProducer != nil {
		if err := d.KafkaProducer.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close kafka producer", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error(ctx, "failed to close redis client", err)
		}
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.Error(ctx, "failed to close database", err)
	}
}

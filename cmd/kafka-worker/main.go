package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cpa-server/internal/bootstrap"
	"cpa-server/internal/clients/redis"
	"cpa-server/internal/clock"
	"cpa-server/internal/config"
	"cpa-server/internal/metrics"
	"cpa-server/internal/observability"
	"cpa-server/internal/store"
	"cpa-server/internal/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Initialize logger
	logger := observability.NewLogger()
	ctx := context.Background()

	logger.Info(ctx, "Starting Kafka postback worker...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(ctx, "failed to load configuration", err)
	}
	if !cfg.Kafka.Enabled() {
		logger.Fatal(ctx, "kafka worker requires KAFKA_BROKERS", config.ErrEmptyEnvironmentVariable)
	}

	// Initialize store
	dataStore, err := store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize store", err)
	}
	defer dataStore.Close()

	// Initialize profile cache
	cache, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to connect to redis", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	postbackDispatcher := bootstrap.NewDispatcher(cfg, &dataStore, cache, clock.Real{}, logger, m)

	// Initialize Kafka consumer with its own worker pool
	taskConsumer := workers.NewConsumer(workers.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		Topic:         cfg.Kafka.Topic,
		NumWorkers:    cfg.Dispatcher.Workers,
		QueueSize:     cfg.Dispatcher.QueueSize,
		DrainTimeout:  cfg.Dispatcher.DrainTimeout,
	}, postbackDispatcher, logger)

	logger.Info(ctx, fmt.Sprintf(`Kafka postback worker configuration:
  - Workers: %d
  - Kafka brokers: %v
  - Kafka topic: %s
  - Consumer group: %s`,
		cfg.Dispatcher.Workers, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup))

	// Expose metrics for scraping
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "metrics server stopped", err)
		}
	}()

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := taskConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "postback consumer error", err)
		}
	}()

	logger.Info(ctx, "Kafka postback worker started successfully")

	// Wait for shutdown signal
	select {
	case <-sigChan:
		logger.Info(ctx, "Received shutdown signal, draining in-flight deliveries...")
	case <-done:
		logger.Info(ctx, "postback consumer exited")
	}

	taskConsumer.Stop()
	<-done

	if err := metricsServer.Shutdown(context.Background()); err != nil {
		logger.Error(ctx, "failed to stop metrics server", err)
	}

	logger.Info(ctx, "Kafka postback worker stopped")
}

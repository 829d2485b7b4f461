package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Dispatcher DispatcherConfig
	Outbox     OutboxConfig
	Server     ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// KafkaConfig holds delivery task streaming configuration.
// An empty broker list means tasks are handed to the in-process pool directly.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// Enabled reports whether tasks should go through Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig holds the profile cache connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// ProfileCacheTTL is how long an advertiser's profile list stays cached
	ProfileCacheTTL time.Duration
}

// DispatcherConfig holds worker pool configuration for postback delivery
type DispatcherConfig struct {
	Workers      int
	QueueSize    int
	DrainTimeout time.Duration
}

// OutboxConfig controls the relay that republishes undelivered tasks
type OutboxConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	Lease     time.Duration
	BatchSize int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               int
	CORSAllowedOrigins []string
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current process environment
func FromEnv() (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Kafka configuration
	cfg.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Kafka.Topic = getEnvWithDefault("KAFKA_TOPIC", "postback-tasks")
	cfg.Kafka.ConsumerGroup = getEnvWithDefault("KAFKA_CONSUMER_GROUP", "postback-dispatchers")

	// Redis configuration
	if cfg.Redis.Enabled, err = strconv.ParseBool(getEnvWithDefault("REDIS_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_ENABLED: %w", err)
	}
	cfg.Redis.Host = getEnvWithDefault("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = strconv.Atoi(getEnvWithDefault("REDIS_PORT", "6379")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_PORT: %w", err)
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = strconv.Atoi(getEnvWithDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_DB: %w", err)
	}
	if cfg.Redis.ProfileCacheTTL, err = time.ParseDuration(getEnvWithDefault("PROFILE_CACHE_TTL", "60s")); err != nil {
		return nil, fmt.Errorf("failed to parse PROFILE_CACHE_TTL: %w", err)
	}

	// Dispatcher worker pool
	if cfg.Dispatcher.Workers, err = strconv.Atoi(getEnvWithDefault("DISPATCHER_WORKERS", "10")); err != nil {
		return nil, fmt.Errorf("failed to parse DISPATCHER_WORKERS: %w", err)
	}
	if cfg.Dispatcher.QueueSize, err = strconv.Atoi(getEnvWithDefault("DISPATCHER_QUEUE_SIZE", "100")); err != nil {
		return nil, fmt.Errorf("failed to parse DISPATCHER_QUEUE_SIZE: %w", err)
	}
	if cfg.Dispatcher.DrainTimeout, err = time.ParseDuration(getEnvWithDefault("DISPATCHER_DRAIN_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("failed to parse DISPATCHER_DRAIN_TIMEOUT: %w", err)
	}

	// Outbox relay
	if cfg.Outbox.Interval, err = time.ParseDuration(getEnvWithDefault("OUTBOX_INTERVAL", "15s")); err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOX_INTERVAL: %w", err)
	}
	if cfg.Outbox.Grace, err = time.ParseDuration(getEnvWithDefault("OUTBOX_GRACE", "30s")); err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOX_GRACE: %w", err)
	}
	if cfg.Outbox.Lease, err = time.ParseDuration(getEnvWithDefault("OUTBOX_LEASE", "15m")); err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOX_LEASE: %w", err)
	}
	if cfg.Outbox.BatchSize, err = strconv.Atoi(getEnvWithDefault("OUTBOX_BATCH_SIZE", "100")); err != nil {
		return nil, fmt.Errorf("failed to parse OUTBOX_BATCH_SIZE: %w", err)
	}

	// Server configuration
	if cfg.Server.Port, err = strconv.Atoi(getEnvWithDefault("SERVER_PORT", "8080")); err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}
	cfg.Server.CORSAllowedOrigins = splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"))

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

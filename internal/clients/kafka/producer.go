package kafka

import (
	"context"
	"fmt"

	"cpa-server/internal/observability"

	"github.com/segmentio/kafka-go"
)

// Producer publishes keyed messages to a single Kafka topic
type Producer struct {
	writer messageWriter
	topic  string
	logger *observability.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig contains configuration for Kafka producer
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// Message is a payload with a partition key and headers
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger *observability.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		// Messages with the same key land on the same partition
		Balancer:     &kafka.Hash{},
		Async:        false,
		Compression:  kafka.Snappy,
		BatchSize:    100,
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		writer: writer,
		topic:  config.Topic,
		logger: logger,
	}
}

// Publish writes messages synchronously
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "topic", Value: p.topic})

	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		headers := make([]kafka.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		out[i] = kafka.Message{
			Key:     []byte(m.Key),
			Value:   m.Value,
			Headers: headers,
		}
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		p.logger.Error(ctx, "failed to write messages to kafka", err)
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}

	p.logger.Debug(ctx, fmt.Sprintf("published %d messages to kafka", len(msgs)))
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Package kafka provides a Kafka-backed event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/retina/pkg/eventstream"
)

// DefaultTopic is the default topic for indexing events.
const DefaultTopic = "retina.documents"

// Publisher writes indexing events to a Kafka topic. Events are keyed by
// namespace so one namespace's events stay ordered within a partition.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishIndexed writes one event to the topic.
func (p *Publisher) PublishIndexed(ctx context.Context, event *eventstream.DocumentIndexedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Namespace),
		Value: value,
	}); err != nil {
		return fmt.Errorf("writing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published indexing event",
		zap.String("event_id", event.EventID),
		zap.String("namespace", event.Namespace),
		zap.String("hash", event.ContentHash),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)

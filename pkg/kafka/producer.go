package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fintally/tally/internal/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger *zap.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ReconciliationEvent is the envelope for events emitted to downstream
// consumers (persistence, reporting, notification)
type ReconciliationEvent struct {
	EventType string          `json:"event_type"` // job.completed, job.failed, match.confirmed
	UserID    string          `json:"user_id"`
	JobID     string          `json:"job_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PublishReconciliationEvent publishes a reconciliation event to Kafka
func (p *Producer) PublishReconciliationEvent(ctx context.Context, event *ReconciliationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReconciliationEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.JobID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "user_id", Value: []byte(event.UserID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish reconciliation event",
			zap.Error(err),
			zap.String("event_type", event.EventType),
			zap.String("job_id", event.JobID),
		)
		return err
	}

	p.logger.Debug("published reconciliation event",
		zap.String("event_type", event.EventType),
		zap.String("job_id", event.JobID),
		zap.String("user_id", event.UserID),
	)

	return nil
}

// PublishReconciliationEvents publishes multiple events in one write
func (p *Producer) PublishReconciliationEvents(ctx context.Context, events []*ReconciliationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReconciliationEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.JobID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "user_id", Value: []byte(event.UserID)},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish reconciliation events batch",
			zap.Error(err),
			zap.Int("batch_size", len(events)),
		)
		return err
	}

	p.logger.Debug("published reconciliation events batch", zap.Int("batch_size", len(events)))
	return nil
}

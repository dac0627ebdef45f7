package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/control-room/internal/config"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer the relay uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer relays accepted readings to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured relay topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 2 * time.Second,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Load publishes one reading keyed by sensor tag, so each sensor's readings
// stay ordered within a partition.
func (w *Writer) Load(ctx context.Context, r domain.Reading) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		w.metrics.RelayErrors.Inc()
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.RelayErrors.Inc()
		return fmt.Errorf("relay reading %s/%s: %w", r.Tag, r.Field, err)
	}
	w.metrics.RelayPublished.Inc()
	return nil
}

func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	w.logger.Info("kafka relay closed")
	return nil
}

// serializeToMessage marshals a Reading into a Kafka message.
func serializeToMessage(r domain.Reading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Tag),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "field", Value: []byte(r.Field)},
			{Key: "source", Value: []byte(r.Source)},
			{Key: "received_at", Value: []byte(r.ReceivedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Package kafka publishes sailing status change events to the status topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/capecast/ferry-risk-service/internal/config"
	"github.com/capecast/ferry-risk-service/internal/domain"
)

// Writer produces status change events to a Kafka topic.
// It implements pipeline.EventPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured status topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaStatusTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishStatusChange serializes and publishes one status change event.
// Keyed by sailing key so all transitions for a sailing land in order on
// one partition.
func (w *Writer) PublishStatusChange(ctx context.Context, event domain.StatusChangeEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StatusChangeEvent into a Kafka message.
func serializeToMessage(event domain.StatusChangeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status change event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.SailingKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "operator_id", Value: []byte(event.OperatorID)},
			{Key: "new_status", Value: []byte(event.NewStatus)},
			{Key: "changed_at", Value: []byte(event.ChangedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Package kafka publishes the cleaned accident table to a Kafka topic for
// downstream consumers that want the records as a stream rather than a file.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nroussel/accidash/internal/config"
	"github.com/nroussel/accidash/internal/domain"
)

// Writer produces cleaned accident records to a Kafka topic.
// It implements pipeline.Exporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Export serializes and publishes the cleaned accidents in a single
// WriteMessages call so the batch either lands whole or fails whole.
func (w *Writer) Export(ctx context.Context, accidents []domain.Accident) error {
	if len(accidents) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(accidents))
	for i := range accidents {
		msg, err := serializeToMessage(accidents[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an accident into a Kafka message keyed by the
// accident id, so all records of one accident land on the same partition.
func serializeToMessage(a domain.Accident) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize accident: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(a.SeverityLabel)},
			{Key: "generated_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}

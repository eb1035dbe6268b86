package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *slog.Logger
}

// NewConsumer joins groupID, or reads the topic from the start of
// partition 0 without committing offsets when groupID is empty.
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	}
	if groupID == "" {
		cfg.Partition = 0
	}
	return &Consumer{
		reader: kafka.NewReader(cfg),
		logger: logger.With("component", "kafka_consumer"),
	}
}

// Consume blocks until ctx is cancelled. Handler errors are logged and
// do not stop the loop.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Error("failed to read message", "err", err)
				continue
			}

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.logger.Error("failed to handle message", "key", string(msg.Key), "err", err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

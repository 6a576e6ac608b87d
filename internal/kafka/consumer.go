package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/courtbooking/internal/events"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume reads until ctx is done. Undecodable messages and handler failures are
// logged and skipped so one bad event cannot stall the group.
func (c *Consumer) Consume(ctx context.Context, handler events.Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		n, err := events.Decode(msg.Value)
		if err != nil {
			logger.Warn("skipping kafka message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		if err := handler(ctx, n); err != nil {
			logger.Error("notification handler failed", "event_id", n.ID, "user_id", n.UserID, "error", err)
		}
	}
}

var _ events.Subscriber = (*Consumer)(nil)

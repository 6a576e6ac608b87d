// Package events defines the messages the core publishes and the transport-neutral
// publisher and subscriber contracts implemented by the kafka and mq packages.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
	Close() error
}

type Handler func(ctx context.Context, n Notification) error

type Subscriber interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Notification is the event published for every notification recorded for a user.
type Notification struct {
	ID         string                  `json:"id"`
	UserID     int64                   `json:"user_id"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	Type       domain.NotificationType `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
}

func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification event: %w", err)
	}
	if n.UserID == 0 {
		return Notification{}, fmt.Errorf("decode notification event: missing user_id")
	}
	return n, nil
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
func (Nop) Close() error                                        { return nil }

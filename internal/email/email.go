package email

import (
	"context"

	"github.com/Domenick1991/courtbooking/internal/events"
	"github.com/Domenick1991/courtbooking/internal/logger"
)

// Sender delivers notification events to users. The current transport only logs.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event events.Notification) error {
	logger.InfoContext(ctx, "delivering notification",
		"event_id", event.ID,
		"user_id", event.UserID,
		"type", event.Type,
		"title", event.Title,
	)
	return nil
}

// Package notification records user notifications and publishes them for delivery.
// Recording is best-effort: failures are logged and never returned.
package notification

import (
	"context"
	"strconv"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/Domenick1991/courtbooking/internal/events"
	"github.com/Domenick1991/courtbooking/internal/logger"
	"github.com/Domenick1991/courtbooking/internal/repository"
	"github.com/google/uuid"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, title, message string, kind domain.NotificationType)
}

type Emitter struct {
	repo      repository.NotificationRepository
	publisher events.Publisher
	topic     string
	now       func() time.Time
}

func NewEmitter(repo repository.NotificationRepository, publisher events.Publisher, topic string) *Emitter {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Emitter{repo: repo, publisher: publisher, topic: topic, now: time.Now}
}

func (e *Emitter) Notify(ctx context.Context, userID int64, title, message string, kind domain.NotificationType) {
	n := &domain.Notification{UserID: userID, Title: title, Message: message, Type: kind}
	if err := e.repo.Create(ctx, n); err != nil {
		logger.WarnContext(ctx, "failed to record notification", "user_id", userID, "title", title, "error", err)
	}

	if e.topic == "" {
		return
	}
	event := events.Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      title,
		Message:    message,
		Type:       kind,
		OccurredAt: e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, e.topic, strconv.FormatInt(userID, 10), event); err != nil {
		logger.WarnContext(ctx, "failed to publish notification", "user_id", userID, "topic", e.topic, "error", err)
	}
}

func (e *Emitter) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	return e.repo.ListByUser(ctx, userID, limit, offset)
}

var _ Notifier = (*Emitter)(nil)

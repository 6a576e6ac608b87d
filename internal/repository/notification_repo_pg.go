package repository

import (
	"context"

	"github.com/Domenick1991/courtbooking/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error)
}

type PGNotificationRepository struct {
	store *Store
}

func NewNotificationRepository(store *Store) NotificationRepository {
	return &PGNotificationRepository{store: store}
}

func (r *PGNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	err := r.store.DB().QueryRowContext(ctx, `INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at`, n.UserID, n.Title, n.Message, n.Type).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	return storeError("insert notification", err)
}

func (r *PGNotificationRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	p := predicates{}
	p.add("user_id", "=", userID)
	query := `SELECT id, user_id, title, message, type, is_read, created_at FROM notifications` + p.where() + ` ORDER BY created_at DESC, id DESC` + p.page(limit, offset)

	rows, err := r.store.DB().QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, storeError("list notifications", err)
	}
	defer rows.Close()

	notes := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, storeError("scan notification", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list notifications", err)
	}
	return notes, nil
}

var _ NotificationRepository = (*PGNotificationRepository)(nil)

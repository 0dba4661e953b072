package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-booking/internal/models"
)

func (r *Repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	_, err := r.db.NewInsert().Model(n).Exec(ctx)
	return wrap(err, "create notification")
}

func (r *Repo) UpdateNotificationStatus(ctx context.Context, n *models.Notification) error {
	_, err := r.db.NewUpdate().
		Model(n).
		Column("status", "error", "sent_at").
		WherePK().
		Exec(ctx)
	return wrap(err, "update notification")
}

func (r *Repo) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	var n models.Notification
	err := r.db.NewSelect().
		Model(&n).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get notification")
	}
	return &n, nil
}

func (r *Repo) NotificationsByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	var list []*models.Notification
	q := r.db.NewSelect().
		Model(&list).
		Where("user_id = ?", userID).
		Order("id DESC")
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrap(err, "list notifications")
	}
	return list, nil
}

func (r *Repo) MarkNotificationRead(ctx context.Context, n *models.Notification) error {
	n.IsRead = true
	n.Status = models.NotificationRead
	n.ReadAt = time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model(n).
		Column("is_read", "status", "read_at").
		WherePK().
		Exec(ctx)
	return wrap(err, "mark notification read")
}

// GetPreferences falls back to the defaults when the user never saved any.
func (r *Repo) GetPreferences(ctx context.Context, userID int64) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := r.db.NewSelect().
		Model(&p).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, wrap(err, "get preferences")
	}
	return &p, nil
}

func (r *Repo) SavePreferences(ctx context.Context, p *models.NotificationPreference) error {
	_, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (user_id) DO UPDATE").
		Set("booking_confirmations = EXCLUDED.booking_confirmations").
		Set("booking_cancellations = EXCLUDED.booking_cancellations").
		Set("show_reminders = EXCLUDED.show_reminders").
		Set("loyalty_updates = EXCLUDED.loyalty_updates").
		Set("email_enabled = EXCLUDED.email_enabled").
		Set("realtime_enabled = EXCLUDED.realtime_enabled").
		Exec(ctx)
	return wrap(err, "save preferences")
}

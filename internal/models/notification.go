package models

import (
	"time"

	"github.com/uptrace/bun"
)

type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "BOOKING_CONFIRMATION"
	NotifyBookingCancellation NotificationType = "BOOKING_CANCELLATION"
	NotifyBookingExpired      NotificationType = "BOOKING_EXPIRED"
	NotifyTierUpgrade         NotificationType = "TIER_UPGRADE"
	NotifyShowReminder        NotificationType = "SHOW_REMINDER"
)

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationRead      NotificationStatus = "READ"
	NotificationFailed    NotificationStatus = "FAILED"
)

// Notification.UserID is nil for system broadcasts.
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID        int64              `bun:"id,pk,autoincrement" json:"id"`
	UserID    *int64             `bun:"user_id" json:"user_id,omitempty"`
	Type      NotificationType   `bun:"type,notnull" json:"type"`
	Subject   string             `bun:"subject,notnull" json:"subject"`
	Content   string             `bun:"content" json:"content"`
	Status    NotificationStatus `bun:"status,notnull" json:"status"`
	IsRead    bool               `bun:"is_read,notnull" json:"is_read"`
	RelatedID *int64             `bun:"related_id" json:"related_id,omitempty"`
	Error     string             `bun:"error,nullzero" json:"error,omitempty"`
	CreatedAt time.Time          `bun:"created_at,notnull" json:"created_at"`
	SentAt    time.Time          `bun:"sent_at,nullzero" json:"sent_at,omitempty"`
	ReadAt    time.Time          `bun:"read_at,nullzero" json:"read_at,omitempty"`
}

type NotificationPreference struct {
	bun.BaseModel `bun:"table:notification_preferences"`

	UserID               int64 `bun:"user_id,pk" json:"user_id"`
	BookingConfirmations bool  `bun:"booking_confirmations,notnull" json:"booking_confirmations"`
	BookingCancellations bool  `bun:"booking_cancellations,notnull" json:"booking_cancellations"`
	ShowReminders        bool  `bun:"show_reminders,notnull" json:"show_reminders"`
	LoyaltyUpdates       bool  `bun:"loyalty_updates,notnull" json:"loyalty_updates"`
	EmailEnabled         bool  `bun:"email_enabled,notnull" json:"email_enabled"`
	RealtimeEnabled      bool  `bun:"realtime_enabled,notnull" json:"realtime_enabled"`
}

// DefaultPreferences is what a user without a stored row gets.
func DefaultPreferences(userID int64) *NotificationPreference {
	return &NotificationPreference{
		UserID:               userID,
		BookingConfirmations: true,
		BookingCancellations: true,
		ShowReminders:        true,
		LoyaltyUpdates:       true,
		EmailEnabled:         true,
		RealtimeEnabled:      true,
	}
}

// Allows reports whether the user opted in to a notification type.
func (p *NotificationPreference) Allows(t NotificationType) bool {
	switch t {
	case NotifyBookingConfirmation:
		return p.BookingConfirmations
	case NotifyBookingCancellation, NotifyBookingExpired:
		return p.BookingCancellations
	case NotifyShowReminder:
		return p.ShowReminders
	case NotifyTierUpgrade:
		return p.LoyaltyUpdates
	}
	return true
}

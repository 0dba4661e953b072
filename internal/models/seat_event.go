package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "booking.created"
	EventBookingConfirmed BookingEventType = "booking.confirmed"
	EventBookingCancelled BookingEventType = "booking.cancelled"
	EventBookingExpired   BookingEventType = "booking.expired"
)

// BookingEvent is the broker payload emitted after a booking transaction commits.
type BookingEvent struct {
	EventID       string           `json:"event_id"`
	Type          BookingEventType `json:"type"`
	BookingID     int64            `json:"booking_id"`
	BookingNumber string           `json:"booking_number"`
	UserID        int64            `json:"user_id"`
	ShowID        int64            `json:"show_id"`
	SeatNumbers   []string         `json:"seat_numbers"`
	Status        BookingStatus    `json:"booking_status"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	NetAmount     decimal.Decimal  `json:"net_amount"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

func NewBookingEvent(t BookingEventType, b *Booking, seats []string) BookingEvent {
	return BookingEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		ShowID:        b.ShowID,
		SeatNumbers:   seats,
		Status:        b.BookingStatus,
		TotalAmount:   b.TotalAmount,
		NetAmount:     b.NetAmount(),
		OccurredAt:    time.Now().UTC(),
	}
}

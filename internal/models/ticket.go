package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SeatCategory string

const (
	SeatStandard SeatCategory = "STANDARD"
	SeatPremium  SeatCategory = "PREMIUM"
	SeatVIP      SeatCategory = "VIP"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           int64           `bun:"id,pk,autoincrement" json:"id"`
	TicketNumber string          `bun:"ticket_number,unique,notnull" json:"ticket_number"`
	BookingID    int64           `bun:"booking_id,notnull,unique:booking_seat" json:"booking_id"`
	SeatNumber   string          `bun:"seat_number,notnull,unique:booking_seat" json:"seat_number"`
	SeatCategory SeatCategory    `bun:"seat_category,notnull" json:"seat_category"`
	Price        decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	IsUsed       bool            `bun:"is_used,notnull" json:"is_used"`
	UsedAt       time.Time       `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt    time.Time       `bun:"created_at,notnull" json:"created_at"`
}

// TicketPayload is what gets encrypted into a ticket's QR code.
type TicketPayload struct {
	TicketNumber  string    `json:"ticket_number"`
	BookingNumber string    `json:"booking_number"`
	ShowID        int64     `json:"show_id"`
	SeatNumber    string    `json:"seat_number"`
	StartTime     time.Time `json:"start_time"`
}

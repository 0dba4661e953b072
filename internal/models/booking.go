package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingReserved  BookingStatus = "RESERVED"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Holding reports whether the booking still occupies its seats.
func (s BookingStatus) Holding() bool {
	return s == BookingReserved || s == BookingConfirmed
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type DiscountSource string

const (
	DiscountNone   DiscountSource = ""
	DiscountCoupon DiscountSource = "COUPON"
	DiscountTier   DiscountSource = "TIER"
)

// Booking.TotalAmount is the gross subtotal; the payable amount is NetAmount().
// DiscountAmount always equals the CouponUsage row of the booking (zero without
// one). A loyalty tier discount is kept apart in TierDiscount; the two are
// never both non-zero.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID               int64           `bun:"id,pk,autoincrement" json:"id"`
	BookingNumber    string          `bun:"booking_number,unique,notnull" json:"booking_number"`
	UserID           int64           `bun:"user_id,notnull" json:"user_id"`
	ShowID           int64           `bun:"show_id,notnull" json:"show_id"`
	TotalSeats       int             `bun:"total_seats,notnull" json:"total_seats"`
	TotalAmount      decimal.Decimal `bun:"total_amount,type:numeric(12,2),notnull" json:"total_amount"`
	DiscountAmount   decimal.Decimal `bun:"discount_amount,type:numeric(12,2),notnull" json:"discount_amount"`
	TierDiscount     decimal.Decimal `bun:"tier_discount_amount,type:numeric(12,2),notnull" json:"tier_discount_amount"`
	DiscountSource   DiscountSource  `bun:"discount_source,nullzero" json:"discount_source,omitempty"`
	PaymentStatus    PaymentStatus   `bun:"payment_status,notnull" json:"payment_status"`
	BookingStatus    BookingStatus   `bun:"booking_status,notnull" json:"booking_status"`
	PaymentMethod    string          `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	PaymentReference string          `bun:"payment_reference,nullzero" json:"payment_reference,omitempty"`
	ReminderSentAt   time.Time       `bun:"reminder_sent_at,nullzero" json:"-"`
	CreatedAt        time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time       `bun:"updated_at,notnull" json:"updated_at"`

	Show    *Show     `bun:"rel:belongs-to,join:show_id=id" json:"show,omitempty"`
	Tickets []*Ticket `bun:"rel:has-many,join:id=booking_id" json:"tickets,omitempty"`
}

func (b *Booking) NetAmount() decimal.Decimal {
	return b.TotalAmount.Sub(b.DiscountAmount).Sub(b.TierDiscount)
}

// SeatNumbers lists the seats of the loaded tickets.
func (b *Booking) SeatNumbers() []string {
	seats := make([]string, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		seats = append(seats, t.SeatNumber)
	}
	return seats
}

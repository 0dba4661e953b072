package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/store"
)

const (
	idTimeLayout     = "20060102150405"
	vipPaymentMethod = "Admin VIP Reservation"
)

type CreateRequest struct {
	ShowID        int64
	SeatNumbers   []string
	PaymentMethod string
}

// CreateBooking holds seats on a show as a RESERVED booking. The show row is
// locked before occupancy is read, so overlapping requests serialize and the
// loser fails with a seat conflict.
func (s *Service) CreateBooking(ctx context.Context, user *models.User, req CreateRequest) (*models.Booking, error) {
	if user == nil {
		return nil, auth.ErrUnauthenticated
	}

	var booking *models.Booking
	err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
		show, err := r.LockShow(ctx, req.ShowID)
		if err != nil {
			return err
		}
		if err := s.checkBookable(show); err != nil {
			return err
		}

		held, err := s.Seats.ValidateHold(ctx, r, show, req.SeatNumbers)
		if err != nil {
			return err
		}

		quote, err := s.Pricing.Quote(ctx, r, pricing.DraftFor(show, user.ID, len(held)), "")
		if err != nil {
			return fmt.Errorf("price booking: %w", err)
		}

		// No coupon exists yet, so the only discount possible here is the tier's.
		b := &models.Booking{
			UserID:         user.ID,
			ShowID:         show.ID,
			TotalSeats:     len(held),
			TotalAmount:    quote.Subtotal,
			DiscountAmount: decimal.Zero,
			TierDiscount:   quote.Discount,
			DiscountSource: quote.Source(),
			PaymentStatus:  models.PaymentPending,
			BookingStatus:  models.BookingReserved,
			PaymentMethod:  req.PaymentMethod,
		}
		if err := s.insertWithTickets(ctx, r, b, show, held, ticketPrices(show.Price, len(held)), models.SeatStandard); err != nil {
			return err
		}

		fx.touched(show.ID)
		fx.emit(models.EventBookingCreated, b)
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBooking("CREATED", booking.BookingNumber,
		fmt.Sprintf("user=%d show=%d seats=%s total=%s", booking.UserID, booking.ShowID, strings.Join(booking.SeatNumbers(), ","), booking.TotalAmount))
	return booking, nil
}

type VIPRequest struct {
	UserEmail   string
	ShowID      int64
	SeatNumbers []string
	// TotalAmount overrides show.price x seats when set.
	TotalAmount *decimal.Decimal
}

// CreateVIPReservation books seats for a customer as an admin comp: the booking
// is CONFIRMED and paid at once, tickets are VIP, and the spend is recorded at zero.
func (s *Service) CreateVIPReservation(ctx context.Context, admin *models.User, req VIPRequest) (*models.Booking, error) {
	if err := auth.RequireAdmin(admin); err != nil {
		return nil, err
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: total amount must not be negative", ErrInvalidState)
	}

	var booking *models.Booking
	err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
		customer, err := r.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.UserEmail)))
		if err != nil {
			return fmt.Errorf("customer %q: %w", req.UserEmail, err)
		}

		show, err := r.LockShow(ctx, req.ShowID)
		if err != nil {
			return err
		}
		if err := s.checkBookable(show); err != nil {
			return err
		}
		held, err := s.Seats.ValidateHold(ctx, r, show, req.SeatNumbers)
		if err != nil {
			return err
		}

		prices := ticketPrices(show.Price, len(held))
		if req.TotalAmount != nil {
			prices = splitAmount(*req.TotalAmount, len(held))
		}
		total := decimal.Zero
		for _, p := range prices {
			total = total.Add(p)
		}

		now := s.now()
		b := &models.Booking{
			UserID:           customer.ID,
			ShowID:           show.ID,
			TotalSeats:       len(held),
			TotalAmount:      total,
			DiscountAmount:   decimal.Zero,
			TierDiscount:     decimal.Zero,
			PaymentStatus:    models.PaymentCompleted,
			BookingStatus:    models.BookingConfirmed,
			PaymentMethod:    vipPaymentMethod,
			PaymentReference: "VIP-" + now.Format(idTimeLayout),
		}
		if err := s.insertWithTickets(ctx, r, b, show, held, prices, models.SeatVIP); err != nil {
			return err
		}

		if _, err := s.Loyalty.RecordSpend(ctx, r, customer.ID, decimal.Zero, &b.ID, b.BookingNumber); err != nil {
			return fmt.Errorf("record comp spend: %w", err)
		}

		b.Show = show
		fx.touched(show.ID)
		fx.emit(models.EventBookingConfirmed, b)
		fx.notify(confirmationNotice(b, show))
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBooking("VIP", booking.BookingNumber, fmt.Sprintf("admin=%d user=%d seats=%d", admin.ID, booking.UserID, booking.TotalSeats))
	return booking, nil
}

// insertWithTickets writes the booking, one ticket per seat, and takes the seats off the show.
func (s *Service) insertWithTickets(ctx context.Context, r *store.Repo, b *models.Booking, show *models.Show,
	seatNumbers []string, prices []decimal.Decimal, category models.SeatCategory) error {
	now := s.now()

	number, err := s.nextBookingNumber(ctx, r, b.UserID, show.ID, now)
	if err != nil {
		return err
	}
	b.BookingNumber = number
	b.CreatedAt = now
	if err := r.CreateBooking(ctx, b); err != nil {
		return err
	}

	stamp := now.Format(idTimeLayout)
	tickets := make([]*models.Ticket, 0, len(seatNumbers))
	for i, seat := range seatNumbers {
		tickets = append(tickets, &models.Ticket{
			TicketNumber: fmt.Sprintf("T-%06d-%s-%s", b.ID, seat, stamp),
			BookingID:    b.ID,
			SeatNumber:   seat,
			SeatCategory: category,
			Price:        prices[i],
		})
	}
	if err := r.CreateTickets(ctx, tickets); err != nil {
		return err
	}
	b.Tickets = tickets

	show.AvailableSeats -= len(seatNumbers)
	return r.UpdateShowSeats(ctx, show)
}

// nextBookingNumber formats BK-<timestamp>-<user>-<show> and adds -2, -3... when
// that number is already taken within the same second.
func (s *Service) nextBookingNumber(ctx context.Context, r *store.Repo, userID, showID int64, now time.Time) (string, error) {
	base := fmt.Sprintf("BK-%s-%04d-%04d", now.Format(idTimeLayout), userID, showID)
	candidate := base
	for n := 2; ; n++ {
		exists, err := r.BookingNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		if n > 1000 {
			return "", errors.New("could not allocate a booking number")
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func ticketPrices(price decimal.Decimal, n int) []decimal.Decimal {
	prices := make([]decimal.Decimal, n)
	for i := range prices {
		prices[i] = price
	}
	return prices
}

// splitAmount divides total over n seats in cents; the last seat absorbs the remainder.
func splitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	prices := make([]decimal.Decimal, n)
	if n == 0 {
		return prices
	}
	each := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	for i := range prices {
		prices[i] = each
	}
	prices[n-1] = total.Sub(each.Mul(decimal.NewFromInt(int64(n - 1))))
	return prices
}

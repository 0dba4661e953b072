package booking

import (
	"context"
	"fmt"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// ConfirmPayment records an externally completed payment on a RESERVED booking
// and credits the owner's loyalty profile with the net amount.
func (s *Service) ConfirmPayment(ctx context.Context, user *models.User, bookingID int64, paymentReference string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
		b, err := r.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := auth.RequireOwnerOrAdmin(user, b.UserID); err != nil {
			return err
		}
		if b.BookingStatus != models.BookingReserved {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.BookingStatus)
		}

		b.BookingStatus = models.BookingConfirmed
		b.PaymentStatus = models.PaymentCompleted
		if paymentReference != "" {
			b.PaymentReference = paymentReference
		}
		if err := r.UpdateBooking(ctx, b, "booking_status", "payment_status", "payment_reference"); err != nil {
			return err
		}

		spend, err := s.Loyalty.RecordSpend(ctx, r, b.UserID, b.NetAmount(), &b.ID, b.BookingNumber)
		if err != nil {
			return fmt.Errorf("record spend: %w", err)
		}

		show, err := r.GetShow(ctx, b.ShowID)
		if err != nil {
			return err
		}
		b.Show = show

		fx.emit(models.EventBookingConfirmed, b)
		fx.notify(confirmationNotice(b, show))
		if spend.Upgraded() {
			fx.notify(tierUpgradeNotice(b.UserID, spend))
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBooking("CONFIRMED", booking.BookingNumber, fmt.Sprintf("net=%s ref=%s", booking.NetAmount(), booking.PaymentReference))
	return booking, nil
}

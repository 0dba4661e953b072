package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// Cancel cancels a RESERVED or CONFIRMED booking while the show is still
// outside the cancellation window. Seats go back to inventory, a coupon usage is
// reversed, and loyalty points earned by the booking are offset.
func (s *Service) Cancel(ctx context.Context, user *models.User, bookingID int64) (*models.Booking, error) {
	var booking *models.Booking
	err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
		b, err := r.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := auth.RequireOwnerOrAdmin(user, b.UserID); err != nil {
			return err
		}
		if !b.BookingStatus.Holding() {
			return fmt.Errorf("%w: booking is %s", ErrNotCancellable, b.BookingStatus)
		}

		show, err := r.LockShow(ctx, b.ShowID)
		if err != nil {
			return err
		}
		if left := show.StartTime.Sub(s.now()); left < s.Policy.CancelWindow {
			return fmt.Errorf("%w: show starts in %s", ErrCancelWindowClosed, left.Round(time.Second))
		}

		if err := s.release(ctx, r, fx, b, show, models.BookingCancelled); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBooking("CANCELLED", booking.BookingNumber, fmt.Sprintf("by user %d", user.ID))
	return booking, nil
}

// ExpireReservations moves RESERVED bookings older than the hold window to
// EXPIRED, one transaction per booking. It returns how many were expired.
func (s *Service) ExpireReservations(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.Policy.HoldWindow)
	ids, err := s.Store.Repo().ReservedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		done := false
		err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
			done = false
			b, err := r.LockBooking(ctx, id)
			if err != nil {
				return err
			}
			// Confirmed or cancelled since the scan.
			if b.BookingStatus != models.BookingReserved || !b.CreatedAt.Before(cutoff) {
				return nil
			}
			show, err := r.LockShow(ctx, b.ShowID)
			if err != nil {
				return err
			}
			if err := s.release(ctx, r, fx, b, show, models.BookingExpired); err != nil {
				return err
			}
			done = true
			s.logger.LogBooking("EXPIRED", b.BookingNumber, fmt.Sprintf("held since %s", b.CreatedAt.Format("15:04:05")))
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire booking %d: %w", id, err))
			continue
		}
		if done {
			expired++
		}
	}
	return expired, errors.Join(errs...)
}

// release ends a holding booking with status (CANCELLED or EXPIRED). The
// booking and show must already be locked by the caller.
func (s *Service) release(ctx context.Context, r *store.Repo, fx *effects, b *models.Booking, show *models.Show, status models.BookingStatus) error {
	b.BookingStatus = status
	if b.PaymentStatus == models.PaymentCompleted {
		b.PaymentStatus = models.PaymentRefunded
	}

	show.AvailableSeats += b.TotalSeats
	if show.AvailableSeats > show.TotalSeats {
		s.logger.Warn("BOOKING", fmt.Sprintf("Show %d inventory would exceed capacity, clamping", show.ID))
		show.AvailableSeats = show.TotalSeats
	}
	if err := r.UpdateShowSeats(ctx, show); err != nil {
		return err
	}

	usage, err := r.CouponUsageByBooking(ctx, b.ID)
	switch {
	case err == nil:
		coupon, err := r.LockCoupon(ctx, usage.CouponID)
		if err != nil {
			return err
		}
		if err := r.DeleteCouponUsage(ctx, usage); err != nil {
			return err
		}
		if coupon.CurrentUses > 0 {
			coupon.CurrentUses--
		}
		if err := r.UpdateCouponUses(ctx, coupon); err != nil {
			return err
		}
		b.DiscountAmount = decimal.Zero
		b.DiscountSource = models.DiscountNone
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if err := r.UpdateBooking(ctx, b, "booking_status", "payment_status", "discount_amount", "discount_source"); err != nil {
		return err
	}

	if _, err := s.Loyalty.RefundSpend(ctx, r, b.UserID, b.ID, "refund "+b.BookingNumber); err != nil {
		return fmt.Errorf("refund spend: %w", err)
	}

	b.Show = show
	fx.touched(show.ID)
	if status == models.BookingExpired {
		fx.emit(models.EventBookingExpired, b)
		fx.notify(expiryNotice(b, show))
	} else {
		fx.emit(models.EventBookingCancelled, b)
		fx.notify(cancellationNotice(b, show))
	}
	return nil
}

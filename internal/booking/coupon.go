package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/store"
)

type CouponResult struct {
	Booking  *models.Booking `json:"booking"`
	Discount decimal.Decimal `json:"discount"`
	NetTotal decimal.Decimal `json:"net_total"`
}

// ApplyCoupon applies a coupon code to a RESERVED or CONFIRMED booking. The
// booking and coupon rows are locked, so current_uses can never pass max_uses
// and a booking carries at most one coupon. A coupon replaces a tier discount.
func (s *Service) ApplyCoupon(ctx context.Context, user *models.User, bookingID int64, code string) (*CouponResult, error) {
	var result *CouponResult
	err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
		b, err := r.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := auth.RequireOwnerOrAdmin(user, b.UserID); err != nil {
			return err
		}
		if !b.BookingStatus.Holding() {
			return fmt.Errorf("%w: booking is %s", ErrInvalidState, b.BookingStatus)
		}

		_, err = r.CouponUsageByBooking(ctx, b.ID)
		if err == nil {
			return &pricing.CouponError{Code: store.NormalizeCode(code), Reason: pricing.ReasonAlreadyApplied}
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		show, err := r.GetShow(ctx, b.ShowID)
		if err != nil {
			return err
		}

		coupon, err := r.LockCouponByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return &pricing.CouponError{Code: store.NormalizeCode(code), Reason: pricing.ReasonUnknown}
		}
		if err != nil {
			return err
		}

		draft := pricing.Draft{Show: show, UserID: b.UserID, SeatPrices: []decimal.Decimal{b.TotalAmount}}
		quote, err := s.Pricing.QuoteCoupon(ctx, r, draft, coupon)
		if err != nil {
			return err
		}

		// Usage is charged to the booking owner, also when an admin applies the
		// code, so per-user limits follow the customer.
		usage := &models.CouponUsage{
			CouponID:       coupon.ID,
			UserID:         b.UserID,
			BookingID:      b.ID,
			DiscountAmount: quote.Discount,
			UsedAt:         s.now(),
		}
		if err := r.CreateCouponUsage(ctx, usage); err != nil {
			if store.IsUniqueViolation(err) {
				return &pricing.CouponError{Code: coupon.Code, Reason: pricing.ReasonAlreadyApplied}
			}
			return err
		}

		coupon.CurrentUses++
		if err := r.UpdateCouponUses(ctx, coupon); err != nil {
			return err
		}

		b.DiscountAmount = quote.Discount
		b.TierDiscount = decimal.Zero
		b.DiscountSource = models.DiscountCoupon
		if err := r.UpdateBooking(ctx, b, "discount_amount", "tier_discount_amount", "discount_source"); err != nil {
			return err
		}

		result = &CouponResult{Booking: b, Discount: quote.Discount, NetTotal: b.NetAmount()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogBooking("COUPON", result.Booking.BookingNumber,
		fmt.Sprintf("code=%s discount=%s net=%s", store.NormalizeCode(code), result.Discount, result.NetTotal))
	return result, nil
}

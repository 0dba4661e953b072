// Package pricing validates coupons and computes the monetary breakdown of a booking.
// It reads from the store and never writes.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Reader is the read side of the store used for quoting. *store.Repo satisfies it.
type Reader interface {
	GetActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	CountCouponUsageByUser(ctx context.Context, couponID, userID int64) (int, error)
	CouponTargetIDs(ctx context.Context, couponID int64, kind models.TargetKind) ([]int64, error)
	GetProfileByUser(ctx context.Context, userID int64) (*models.CustomerProfile, error)
	GetTierBenefit(ctx context.Context, tier models.Tier) (*models.TierBenefit, error)
}

// Draft is a prospective or existing booking as the engine sees it.
type Draft struct {
	Show       *models.Show
	UserID     int64
	SeatPrices []decimal.Decimal
}

// DraftFor prices every seat at the show's base price.
func DraftFor(show *models.Show, userID int64, seats int) Draft {
	prices := make([]decimal.Decimal, seats)
	for i := range prices {
		prices[i] = show.Price
	}
	return Draft{Show: show, UserID: userID, SeatPrices: prices}
}

func (d Draft) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.SeatPrices {
		total = total.Add(p)
	}
	return total
}

type Quote struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	Discount            decimal.Decimal `json:"discount"`
	Total               decimal.Decimal `json:"total"`
	Coupon              *models.Coupon  `json:"coupon,omitempty"`
	TierDiscountApplied bool            `json:"tier_discount_applied"`
	Tier                models.Tier     `json:"tier,omitempty"`
}

func (q *Quote) Source() models.DiscountSource {
	switch {
	case q.Coupon != nil:
		return models.DiscountCoupon
	case q.TierDiscountApplied:
		return models.DiscountTier
	default:
		return models.DiscountNone
	}
}

type Engine struct {
	Now    func() time.Time
	logger *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{Now: time.Now, logger: log}
}

// Quote prices a draft. With an empty code the owner's tier discount applies;
// with a code the coupon is looked up, validated and applied instead.
func (e *Engine) Quote(ctx context.Context, r Reader, draft Draft, code string) (*Quote, error) {
	if code == "" {
		return e.tierQuote(ctx, r, draft)
	}

	coupon, err := r.GetActiveCouponByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, rejected(store.NormalizeCode(code), ReasonUnknown)
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return e.QuoteCoupon(ctx, r, draft, coupon)
}

// QuoteCoupon validates an already loaded (typically locked) coupon against the draft.
func (e *Engine) QuoteCoupon(ctx context.Context, r Reader, draft Draft, coupon *models.Coupon) (*Quote, error) {
	subtotal := draft.Subtotal()
	if err := e.validate(ctx, r, draft, coupon, subtotal); err != nil {
		return nil, err
	}

	discount := CouponDiscount(coupon, subtotal)
	e.logger.Debug("PRICING", fmt.Sprintf("Coupon %s on subtotal %s gives %s", coupon.Code, subtotal, discount))

	return &Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
		Coupon:   coupon,
	}, nil
}

func (e *Engine) validate(ctx context.Context, r Reader, draft Draft, c *models.Coupon, subtotal decimal.Decimal) error {
	if !c.IsActive {
		return rejected(c.Code, ReasonUnknown)
	}

	now := e.Now()
	if now.Before(c.ValidFrom) {
		return rejected(c.Code, ReasonNotYetValid)
	}
	if now.After(c.ValidTo) {
		return rejected(c.Code, ReasonExpired)
	}

	if c.MaxUses > 0 && c.CurrentUses >= c.MaxUses {
		return rejected(c.Code, ReasonUsageLimitReached)
	}

	if c.MaxUsesPerUser > 0 {
		used, err := r.CountCouponUsageByUser(ctx, c.ID, draft.UserID)
		if err != nil {
			return fmt.Errorf("count coupon usage: %w", err)
		}
		if used >= c.MaxUsesPerUser {
			return rejected(c.Code, ReasonPerUserLimitReached)
		}
	}

	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return rejected(c.Code, ReasonMinPurchaseUnmet)
	}

	ok, err := applicable(ctx, r, c, draft.Show)
	if err != nil {
		return err
	}
	if !ok {
		return rejected(c.Code, ReasonNotApplicable)
	}
	return nil
}

func applicable(ctx context.Context, r Reader, c *models.Coupon, show *models.Show) (bool, error) {
	var (
		kind   models.TargetKind
		target int64
	)
	switch c.Applicability {
	case models.ApplicableAll, "":
		return true, nil
	case models.ApplicableMovies:
		kind, target = models.TargetMovie, show.MovieID
	case models.ApplicableTheaters:
		kind, target = models.TargetTheater, show.TheaterID
	case models.ApplicableShows:
		kind, target = models.TargetShow, show.ID
	default:
		return false, nil
	}

	ids, err := r.CouponTargetIDs(ctx, c.ID, kind)
	if err != nil {
		return false, fmt.Errorf("load coupon targets: %w", err)
	}
	// An empty show list means every show.
	if kind == models.TargetShow && len(ids) == 0 {
		return true, nil
	}
	for _, id := range ids {
		if id == target {
			return true, nil
		}
	}
	return false, nil
}

// CouponDiscount computes the discount a valid coupon grants on subtotal.
func CouponDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case models.CouponPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
		if c.MaxDiscount != nil && d.GreaterThan(*c.MaxDiscount) {
			d = *c.MaxDiscount
		}
	case models.CouponFixed:
		d = decimal.Min(c.DiscountValue, subtotal)
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d
}

func (e *Engine) tierQuote(ctx context.Context, r Reader, draft Draft) (*Quote, error) {
	subtotal := draft.Subtotal()
	q := &Quote{Subtotal: subtotal, Discount: decimal.Zero, Total: subtotal}

	profile, err := r.GetProfileByUser(ctx, draft.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	tier := profile.EffectiveTier()
	q.Tier = tier
	benefit, err := store.LookupTierBenefit(ctx, r, tier)
	if err != nil {
		return nil, fmt.Errorf("load tier benefit: %w", err)
	}

	if benefit.BookingDiscount.IsPositive() {
		q.Discount = subtotal.Mul(benefit.BookingDiscount).Div(hundred).Round(2)
		q.Total = subtotal.Sub(q.Discount)
		q.TierDiscountApplied = true
	}
	return q, nil
}

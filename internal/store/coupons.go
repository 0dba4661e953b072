package store

import (
	"context"
	"strings"
	"time"

	"ms-booking/internal/models"
)

// NormalizeCode is the canonical form coupon codes are stored and looked up in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateCoupon inserts a coupon and its applicability targets.
func (r *Repo) CreateCoupon(ctx context.Context, c *models.Coupon, targets []models.CouponTarget) error {
	c.Code = NormalizeCode(c.Code)
	if c.Applicability == "" {
		c.Applicability = models.ApplicableAll
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return wrap(err, "create coupon")
	}
	if len(targets) == 0 {
		return nil
	}
	for i := range targets {
		targets[i].CouponID = c.ID
	}
	_, err := r.db.NewInsert().Model(&targets).Exec(ctx)
	return wrap(err, "create coupon targets")
}

// GetActiveCouponByCode → coupon with is_active = true
func (r *Repo) GetActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.NewSelect().
		Model(&c).
		Where("code = ?", NormalizeCode(code)).
		Where("is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get coupon")
	}
	return &c, nil
}

// LockCouponByCode → select_for_update on an active coupon
func (r *Repo) LockCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.forUpdate(r.db.NewSelect().
		Model(&c).
		Where("code = ?", NormalizeCode(code)).
		Where("is_active = ?", true)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock coupon")
	}
	return &c, nil
}

func (r *Repo) LockCoupon(ctx context.Context, id int64) (*models.Coupon, error) {
	var c models.Coupon
	err := r.forUpdate(r.db.NewSelect().
		Model(&c).
		Where("id = ?", id)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock coupon")
	}
	return &c, nil
}

func (r *Repo) GetCoupon(ctx context.Context, id int64) (*models.Coupon, error) {
	var c models.Coupon
	err := r.db.NewSelect().
		Model(&c).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get coupon")
	}
	return &c, nil
}

func (r *Repo) UpdateCouponUses(ctx context.Context, c *models.Coupon) error {
	_, err := r.db.NewUpdate().
		Model(c).
		Column("current_uses").
		WherePK().
		Exec(ctx)
	return wrap(err, "update coupon uses")
}

// CouponTargetIDs → ids in the coupon's applicability set of the given kind
func (r *Repo) CouponTargetIDs(ctx context.Context, couponID int64, kind models.TargetKind) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.CouponTarget)(nil)).
		Column("target_id").
		Where("coupon_id = ?", couponID).
		Where("kind = ?", kind).
		Scan(ctx, &ids)
	if err != nil {
		return nil, wrap(err, "list coupon targets")
	}
	return ids, nil
}

func (r *Repo) CountCouponUsageByUser(ctx context.Context, couponID, userID int64) (int, error) {
	n, err := r.db.NewSelect().
		Model((*models.CouponUsage)(nil)).
		Where("coupon_id = ?", couponID).
		Where("user_id = ?", userID).
		Count(ctx)
	return n, wrap(err, "count coupon usage")
}

func (r *Repo) CountCouponUsage(ctx context.Context, couponID int64) (int, error) {
	n, err := r.db.NewSelect().
		Model((*models.CouponUsage)(nil)).
		Where("coupon_id = ?", couponID).
		Count(ctx)
	return n, wrap(err, "count coupon usage")
}

// CouponUsageByBooking returns ErrNotFound when the booking has no coupon.
func (r *Repo) CouponUsageByBooking(ctx context.Context, bookingID int64) (*models.CouponUsage, error) {
	var u models.CouponUsage
	err := r.db.NewSelect().
		Model(&u).
		Where("booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get coupon usage")
	}
	return &u, nil
}

func (r *Repo) CreateCouponUsage(ctx context.Context, u *models.CouponUsage) error {
	if u.UsedAt.IsZero() {
		u.UsedAt = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(u).Exec(ctx)
	return wrap(err, "create coupon usage")
}

func (r *Repo) DeleteCouponUsage(ctx context.Context, u *models.CouponUsage) error {
	_, err := r.db.NewDelete().
		Model(u).
		WherePK().
		Exec(ctx)
	return wrap(err, "delete coupon usage")
}

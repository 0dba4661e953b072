package store

import (
	"context"
	"errors"
	"time"

	"ms-booking/internal/models"
)

func (r *Repo) CreateProfile(ctx context.Context, p *models.CustomerProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.NewInsert().Model(p).Exec(ctx)
	return wrap(err, "create profile")
}

// CreateProfileIfMissing inserts p unless the user already has a profile.
// It never fails on the unique user_id, so it is safe inside a transaction.
func (r *Repo) CreateProfileIfMissing(ctx context.Context, p *models.CustomerProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.NewInsert().
		Model(p).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	return wrap(err, "create profile")
}

func (r *Repo) GetProfileByUser(ctx context.Context, userID int64) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	err := r.db.NewSelect().
		Model(&p).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get profile")
	}
	return &p, nil
}

// LockProfileByUser → select_for_update on the user's loyalty profile
func (r *Repo) LockProfileByUser(ctx context.Context, userID int64) (*models.CustomerProfile, error) {
	var p models.CustomerProfile
	err := r.forUpdate(r.db.NewSelect().
		Model(&p).
		Where("user_id = ?", userID)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock profile")
	}
	return &p, nil
}

func (r *Repo) UpdateProfile(ctx context.Context, p *models.CustomerProfile) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model(p).
		Column("tier", "tier_override", "points", "lifetime_spending",
			"free_tickets_remaining", "free_tickets_reset_date", "last_tier_check", "updated_at").
		WherePK().
		Exec(ctx)
	return wrap(err, "update profile")
}

func (r *Repo) CreatePointsTransaction(ctx context.Context, t *models.PointsTransaction) error {
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now().UTC()
	}
	_, err := r.db.NewInsert().Model(t).Exec(ctx)
	return wrap(err, "create points transaction")
}

// PointsTransactionForBooking returns ErrNotFound when no row of that type references the booking.
func (r *Repo) PointsTransactionForBooking(ctx context.Context, profileID, bookingID int64, typ models.PointsType) (*models.PointsTransaction, error) {
	var t models.PointsTransaction
	err := r.db.NewSelect().
		Model(&t).
		Where("profile_id = ?", profileID).
		Where("booking_id = ?", bookingID).
		Where("type = ?", typ).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get points transaction")
	}
	return &t, nil
}

func (r *Repo) PointsTransactions(ctx context.Context, profileID int64, limit int) ([]*models.PointsTransaction, error) {
	var txs []*models.PointsTransaction
	q := r.db.NewSelect().
		Model(&txs).
		Where("profile_id = ?", profileID).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, wrap(err, "list points transactions")
	}
	return txs, nil
}

// SumPoints → ledger total for a profile
func (r *Repo) SumPoints(ctx context.Context, profileID int64) (int64, error) {
	var sum int64
	err := r.db.NewSelect().
		Model((*models.PointsTransaction)(nil)).
		ColumnExpr("COALESCE(SUM(points), 0)").
		Where("profile_id = ?", profileID).
		Scan(ctx, &sum)
	return sum, wrap(err, "sum points")
}

func (r *Repo) GetTierBenefit(ctx context.Context, tier models.Tier) (*models.TierBenefit, error) {
	var b models.TierBenefit
	err := r.db.NewSelect().
		Model(&b).
		Where("tier = ?", tier).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get tier benefit")
	}
	return &b, nil
}

type TierBenefitGetter interface {
	GetTierBenefit(ctx context.Context, tier models.Tier) (*models.TierBenefit, error)
}

// LookupTierBenefit loads the benefit row for tier and falls back to the
// built-in table when the row has not been seeded.
func LookupTierBenefit(ctx context.Context, r TierBenefitGetter, tier models.Tier) (*models.TierBenefit, error) {
	b, err := r.GetTierBenefit(ctx, tier)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultTierBenefit(tier), nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) ListTierBenefits(ctx context.Context) ([]*models.TierBenefit, error) {
	var benefits []*models.TierBenefit
	if err := r.db.NewSelect().Model(&benefits).Scan(ctx); err != nil {
		return nil, wrap(err, "list tier benefits")
	}
	return benefits, nil
}

// UpsertTierBenefit inserts or replaces the row for benefit.Tier.
func (r *Repo) UpsertTierBenefit(ctx context.Context, b *models.TierBenefit) error {
	_, err := r.db.NewInsert().
		Model(b).
		On("CONFLICT (tier) DO UPDATE").
		Set("booking_discount = EXCLUDED.booking_discount").
		Set("monthly_free_tickets = EXCLUDED.monthly_free_tickets").
		Set("early_booking_days = EXCLUDED.early_booking_days").
		Set("points_multiplier = EXCLUDED.points_multiplier").
		Exec(ctx)
	return wrap(err, "upsert tier benefit")
}

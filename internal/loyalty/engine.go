// Package loyalty keeps customer profiles: lifetime spending, points and tier.
// Every mutation runs inside the caller's transaction with the profile row locked.
package loyalty

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

var (
	ErrPointsUnderflow = errors.New("points balance cannot go negative")
	ErrUnknownTier     = errors.New("unknown tier")
)

const (
	tierCheckInterval = 30 * 24 * time.Hour
	grantPeriod       = 30 * 24 * time.Hour
)

var pointsPerUnit = decimal.NewFromInt(10)

// Repository is the store surface the engine works against. *store.Repo satisfies it.
type Repository interface {
	CreateProfileIfMissing(ctx context.Context, p *models.CustomerProfile) error
	GetProfileByUser(ctx context.Context, userID int64) (*models.CustomerProfile, error)
	LockProfileByUser(ctx context.Context, userID int64) (*models.CustomerProfile, error)
	UpdateProfile(ctx context.Context, p *models.CustomerProfile) error
	CreatePointsTransaction(ctx context.Context, t *models.PointsTransaction) error
	PointsTransactionForBooking(ctx context.Context, profileID, bookingID int64, typ models.PointsType) (*models.PointsTransaction, error)
	PointsTransactions(ctx context.Context, profileID int64, limit int) ([]*models.PointsTransaction, error)
	GetTierBenefit(ctx context.Context, tier models.Tier) (*models.TierBenefit, error)
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

// SpendResult describes what record_spend changed.
type SpendResult struct {
	Profile      *models.CustomerProfile
	Transaction  *models.PointsTransaction
	Earned       int64
	PreviousTier models.Tier
}

// Upgraded reports whether the effective tier went up.
func (r *SpendResult) Upgraded() bool {
	return r.Profile.EffectiveTier().Rank() > r.PreviousTier.Rank()
}

// EnsureProfile creates a STANDARD profile for the user if none exists and
// returns it locked for the rest of the transaction.
func (e *Engine) EnsureProfile(ctx context.Context, r Repository, userID int64) (*models.CustomerProfile, error) {
	now := e.Now().UTC()
	err := r.CreateProfileIfMissing(ctx, &models.CustomerProfile{
		UserID:               userID,
		Tier:                 models.TierStandard,
		LifetimeSpending:     decimal.Zero,
		FreeTicketsResetDate: now.Add(grantPeriod),
		LastTierCheck:        now,
	})
	if err != nil {
		return nil, err
	}
	return r.LockProfileByUser(ctx, userID)
}

// Benefit returns the stored benefits of a tier, or the built-in defaults when none are stored.
func (e *Engine) Benefit(ctx context.Context, r Repository, tier models.Tier) (*models.TierBenefit, error) {
	return store.LookupTierBenefit(ctx, r, tier)
}

type benefitLister interface {
	ListTierBenefits(ctx context.Context) ([]*models.TierBenefit, error)
}

// Benefits returns the benefit table for every tier, lowest first. Tiers
// without a stored row get the built-in defaults.
func (e *Engine) Benefits(ctx context.Context, r benefitLister) ([]*models.TierBenefit, error) {
	stored, err := r.ListTierBenefits(ctx)
	if err != nil {
		return nil, err
	}
	byTier := make(map[models.Tier]*models.TierBenefit, len(stored))
	for _, b := range stored {
		byTier[b.Tier] = b
	}
	out := models.DefaultTierBenefits()
	for i, d := range out {
		if b, ok := byTier[d.Tier]; ok {
			out[i] = b
		}
	}
	return out, nil
}

// RecordSpend adds amount to the user's lifetime spending, recomputes the tier
// when due, and awards floor(amount x 10 x multiplier) points using the tier in
// effect after recomputation.
func (e *Engine) RecordSpend(ctx context.Context, r Repository, userID int64, amount decimal.Decimal, bookingID *int64, reference string) (*SpendResult, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("record spend: negative amount %s", amount)
	}

	p, err := e.EnsureProfile(ctx, r, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := e.Now().UTC()
	res := &SpendResult{Profile: p, PreviousTier: p.EffectiveTier()}

	if err := e.renewGrantIfDue(ctx, r, p, now); err != nil {
		return nil, err
	}

	before := TierForSpending(p.LifetimeSpending)
	p.LifetimeSpending = p.LifetimeSpending.Add(amount)
	crossed := TierForSpending(p.LifetimeSpending) != before

	if crossed || now.Sub(p.LastTierCheck) >= tierCheckInterval {
		if err := e.recomputeTier(ctx, r, p, now); err != nil {
			return nil, err
		}
	}

	benefit, err := e.Benefit(ctx, r, p.EffectiveTier())
	if err != nil {
		return nil, fmt.Errorf("load tier benefit: %w", err)
	}
	earned := amount.Mul(pointsPerUnit).Mul(benefit.PointsMultiplier).Floor().IntPart()

	tx := &models.PointsTransaction{
		ProfileID:       p.ID,
		Type:            models.PointsEarning,
		Points:          earned,
		Amount:          amount,
		Reference:       reference,
		BookingID:       bookingID,
		TransactionDate: now,
	}
	if err := r.CreatePointsTransaction(ctx, tx); err != nil {
		return nil, err
	}
	p.Points += earned
	if err := r.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	res.Transaction = tx
	res.Earned = earned
	e.logger.Info("LOYALTY", fmt.Sprintf("User %d spent %s, earned %d points, tier %s", userID, amount, earned, p.EffectiveTier()))
	return res, nil
}

// recomputeTier never lowers the computed tier; only an override can do that.
func (e *Engine) recomputeTier(ctx context.Context, r Repository, p *models.CustomerProfile, now time.Time) error {
	previous := p.EffectiveTier()
	if computed := TierForSpending(p.LifetimeSpending); computed.Rank() > p.Tier.Rank() {
		p.Tier = computed
	}
	p.LastTierCheck = now

	if p.EffectiveTier() == previous {
		return nil
	}
	return e.resetGrant(ctx, r, p, now)
}

func (e *Engine) resetGrant(ctx context.Context, r Repository, p *models.CustomerProfile, now time.Time) error {
	benefit, err := e.Benefit(ctx, r, p.EffectiveTier())
	if err != nil {
		return fmt.Errorf("load tier benefit: %w", err)
	}
	p.FreeTicketsRemaining = benefit.MonthlyFreeTickets
	p.FreeTicketsResetDate = now.Add(grantPeriod)
	return nil
}

func (e *Engine) renewGrantIfDue(ctx context.Context, r Repository, p *models.CustomerProfile, now time.Time) error {
	if !p.FreeTicketsResetDate.IsZero() && now.Before(p.FreeTicketsResetDate) {
		return nil
	}
	return e.resetGrant(ctx, r, p, now)
}

// AdjustPoints appends a signed ADJUSTMENT row. A debit larger than the balance fails with ErrPointsUnderflow.
func (e *Engine) AdjustPoints(ctx context.Context, r Repository, userID, delta int64, reason string) (*models.PointsTransaction, error) {
	p, err := e.EnsureProfile(ctx, r, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p.Points+delta < 0 {
		return nil, fmt.Errorf("%w: balance %d, delta %d", ErrPointsUnderflow, p.Points, delta)
	}

	tx := &models.PointsTransaction{
		ProfileID:       p.ID,
		Type:            models.PointsAdjustment,
		Points:          delta,
		Amount:          decimal.Zero,
		Reference:       reason,
		TransactionDate: e.Now().UTC(),
	}
	if err := r.CreatePointsTransaction(ctx, tx); err != nil {
		return nil, err
	}
	p.Points += delta
	if err := r.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Info("LOYALTY", fmt.Sprintf("Adjusted user %d by %d points (%s)", userID, delta, reason))
	return tx, nil
}

// RefundSpend reverses the EARNING row of a booking with an offsetting SPENDING
// row and takes the recorded amount back off lifetime spending, clamped at zero.
// The tier is left alone. Returns nil when there is nothing to reverse.
func (e *Engine) RefundSpend(ctx context.Context, r Repository, userID, bookingID int64, reference string) (*models.PointsTransaction, error) {
	p, err := r.LockProfileByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock profile: %w", err)
	}

	earning, err := r.PointsTransactionForBooking(ctx, p.ID, bookingID, models.PointsEarning)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_, err = r.PointsTransactionForBooking(ctx, p.ID, bookingID, models.PointsSpending)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	offset := earning.Points
	if offset > p.Points {
		offset = p.Points
	}

	tx := &models.PointsTransaction{
		ProfileID:       p.ID,
		Type:            models.PointsSpending,
		Points:          -offset,
		Amount:          earning.Amount,
		Reference:       reference,
		BookingID:       &bookingID,
		TransactionDate: e.Now().UTC(),
	}
	if err := r.CreatePointsTransaction(ctx, tx); err != nil {
		return nil, err
	}

	p.Points -= offset
	p.LifetimeSpending = decimal.Max(decimal.Zero, p.LifetimeSpending.Sub(earning.Amount))
	if err := r.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Info("LOYALTY", fmt.Sprintf("Refunded booking %d for user %d: -%d points", bookingID, userID, offset))
	return tx, nil
}

// SetOverride pins a tier regardless of spending. An empty tier clears the override.
func (e *Engine) SetOverride(ctx context.Context, r Repository, userID int64, tier models.Tier) (*models.CustomerProfile, error) {
	if tier != "" && !tier.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownTier, tier)
	}
	p, err := e.EnsureProfile(ctx, r, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := e.Now().UTC()
	previous := p.EffectiveTier()
	p.TierOverride = tier
	if p.EffectiveTier() != previous {
		if err := e.resetGrant(ctx, r, p, now); err != nil {
			return nil, err
		}
	}
	if err := r.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Summary is the customer-facing view of a profile.
type Summary struct {
	Profile      *models.CustomerProfile     `json:"profile"`
	Benefit      *models.TierBenefit         `json:"benefit"`
	NextTier     models.Tier                 `json:"next_tier,omitempty"`
	SpendToNext  *decimal.Decimal            `json:"spend_to_next,omitempty"`
	Transactions []*models.PointsTransaction `json:"transactions"`
}

func (e *Engine) Summary(ctx context.Context, r Repository, userID int64, limit int) (*Summary, error) {
	p, err := e.EnsureProfile(ctx, r, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	benefit, err := e.Benefit(ctx, r, p.EffectiveTier())
	if err != nil {
		return nil, err
	}
	txs, err := r.PointsTransactions(ctx, p.ID, limit)
	if err != nil {
		return nil, err
	}

	s := &Summary{Profile: p, Benefit: benefit, Transactions: txs}
	if next, floor, ok := NextTier(p.Tier); ok {
		gap := floor.Sub(p.LifetimeSpending)
		s.NextTier = next
		s.SpendToNext = &gap
	}
	return s, nil
}

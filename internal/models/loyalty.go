package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierVIP      Tier = "VIP"
)

var tierRank = map[Tier]int{
	TierStandard: 0,
	TierSilver:   1,
	TierGold:     2,
	TierPlatinum: 3,
	TierVIP:      4,
}

// Rank orders tiers from STANDARD (0) to VIP (4).
func (t Tier) Rank() int {
	return tierRank[t]
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

type CustomerProfile struct {
	bun.BaseModel `bun:"table:customer_profiles"`

	ID                   int64           `bun:"id,pk,autoincrement" json:"id"`
	UserID               int64           `bun:"user_id,unique,notnull" json:"user_id"`
	Tier                 Tier            `bun:"tier,notnull" json:"tier"`
	TierOverride         Tier            `bun:"tier_override,nullzero" json:"tier_override,omitempty"`
	Points               int64           `bun:"points,notnull" json:"points"`
	LifetimeSpending     decimal.Decimal `bun:"lifetime_spending,type:numeric(12,2),notnull" json:"lifetime_spending"`
	FreeTicketsRemaining int             `bun:"free_tickets_remaining,notnull" json:"free_tickets_remaining"`
	FreeTicketsResetDate time.Time       `bun:"free_tickets_reset_date,nullzero" json:"free_tickets_reset_date"`
	LastTierCheck        time.Time       `bun:"last_tier_check,nullzero" json:"last_tier_check"`
	CreatedAt            time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt            time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// EffectiveTier is the override when one is set, otherwise the computed tier.
func (p *CustomerProfile) EffectiveTier() Tier {
	if p.TierOverride != "" {
		return p.TierOverride
	}
	if p.Tier == "" {
		return TierStandard
	}
	return p.Tier
}

type PointsType string

const (
	PointsEarning    PointsType = "EARNING"
	PointsSpending   PointsType = "SPENDING"
	PointsAdjustment PointsType = "ADJUSTMENT"
	PointsExpiry     PointsType = "EXPIRY"
)

// PointsTransaction rows are append-only; their sum is the profile balance.
type PointsTransaction struct {
	bun.BaseModel `bun:"table:points_transactions"`

	ID              int64           `bun:"id,pk,autoincrement" json:"id"`
	ProfileID       int64           `bun:"profile_id,notnull" json:"profile_id"`
	Type            PointsType      `bun:"type,notnull" json:"type"`
	Points          int64           `bun:"points,notnull" json:"points"`
	Amount          decimal.Decimal `bun:"amount,type:numeric(12,2),notnull" json:"amount"`
	Reference       string          `bun:"reference" json:"reference"`
	BookingID       *int64          `bun:"booking_id" json:"booking_id,omitempty"`
	TransactionDate time.Time       `bun:"transaction_date,notnull" json:"transaction_date"`
}

// TierBenefit.BookingDiscount is a percentage.
type TierBenefit struct {
	bun.BaseModel `bun:"table:tier_benefits"`

	Tier               Tier            `bun:"tier,pk" json:"tier"`
	BookingDiscount    decimal.Decimal `bun:"booking_discount,type:numeric(5,2),notnull" json:"booking_discount"`
	MonthlyFreeTickets int             `bun:"monthly_free_tickets,notnull" json:"monthly_free_tickets"`
	EarlyBookingDays   int             `bun:"early_booking_days,notnull" json:"early_booking_days"`
	PointsMultiplier   decimal.Decimal `bun:"points_multiplier,type:numeric(5,2),notnull" json:"points_multiplier"`
}

// DefaultTierBenefits is the built-in benefit table. It seeds tier_benefits and
// stands in for any tier whose row is missing.
func DefaultTierBenefits() []*TierBenefit {
	return []*TierBenefit{
		{Tier: TierStandard, BookingDiscount: decimal.Zero, MonthlyFreeTickets: 0, EarlyBookingDays: 0, PointsMultiplier: decimal.NewFromInt(1)},
		{Tier: TierSilver, BookingDiscount: decimal.NewFromInt(5), MonthlyFreeTickets: 1, EarlyBookingDays: 1, PointsMultiplier: decimal.RequireFromString("1.25")},
		{Tier: TierGold, BookingDiscount: decimal.NewFromInt(10), MonthlyFreeTickets: 2, EarlyBookingDays: 2, PointsMultiplier: decimal.RequireFromString("1.5")},
		{Tier: TierPlatinum, BookingDiscount: decimal.NewFromInt(15), MonthlyFreeTickets: 3, EarlyBookingDays: 3, PointsMultiplier: decimal.NewFromInt(2)},
		{Tier: TierVIP, BookingDiscount: decimal.NewFromInt(20), MonthlyFreeTickets: 4, EarlyBookingDays: 7, PointsMultiplier: decimal.NewFromInt(3)},
	}
}

// DefaultTierBenefit returns the built-in row for tier, STANDARD for unknown tiers.
func DefaultTierBenefit(tier Tier) *TierBenefit {
	defaults := DefaultTierBenefits()
	for _, b := range defaults {
		if b.Tier == tier {
			return b
		}
	}
	return defaults[0]
}

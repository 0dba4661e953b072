package loyalty

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ms-booking/internal/models"
)

// tierThresholds are lifetime spending floors, highest first.
var tierThresholds = []struct {
	tier  models.Tier
	floor decimal.Decimal
}{
	{models.TierVIP, decimal.NewFromInt(2500)},
	{models.TierPlatinum, decimal.NewFromInt(1000)},
	{models.TierGold, decimal.NewFromInt(500)},
	{models.TierSilver, decimal.NewFromInt(100)},
}

// TierForSpending maps lifetime spending to the tier it qualifies for.
func TierForSpending(spent decimal.Decimal) models.Tier {
	for _, t := range tierThresholds {
		if spent.GreaterThanOrEqual(t.floor) {
			return t.tier
		}
	}
	return models.TierStandard
}

// NextTier returns the next tier up and the spending it starts at. ok is false at the top.
func NextTier(current models.Tier) (models.Tier, decimal.Decimal, bool) {
	for i := len(tierThresholds) - 1; i >= 0; i-- {
		if tierThresholds[i].tier.Rank() > current.Rank() {
			return tierThresholds[i].tier, tierThresholds[i].floor, true
		}
	}
	return "", decimal.Zero, false
}

type benefitWriter interface {
	UpsertTierBenefit(ctx context.Context, b *models.TierBenefit) error
}

// SeedTierBenefits writes the default benefit table, replacing existing rows.
func SeedTierBenefits(ctx context.Context, w benefitWriter) error {
	for _, b := range models.DefaultTierBenefits() {
		if err := w.UpsertTierBenefit(ctx, b); err != nil {
			return fmt.Errorf("seed %s benefits: %w", b.Tier, err)
		}
	}
	return nil
}

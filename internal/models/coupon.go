package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type CouponType string

const (
	CouponPercentage CouponType = "PERCENTAGE"
	CouponFixed      CouponType = "FIXED"
)

type Applicability string

const (
	ApplicableAll      Applicability = "ALL"
	ApplicableMovies   Applicability = "SPECIFIC_MOVIES"
	ApplicableTheaters Applicability = "SPECIFIC_THEATERS"
	ApplicableShows    Applicability = "SPECIFIC_SHOWS"
)

// Coupon counters: CurrentUses always equals the number of CouponUsage rows.
// MaxUses and MaxUsesPerUser use 0 for unlimited.
type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	ID             int64            `bun:"id,pk,autoincrement" json:"id"`
	Code           string           `bun:"code,unique,notnull" json:"code"`
	Description    string           `bun:"description" json:"description,omitempty"`
	Type           CouponType       `bun:"type,notnull" json:"type"`
	DiscountValue  decimal.Decimal  `bun:"discount_value,type:numeric(12,2),notnull" json:"discount_value"`
	MaxDiscount    *decimal.Decimal `bun:"max_discount,type:numeric(12,2)" json:"max_discount,omitempty"`
	MinPurchase    *decimal.Decimal `bun:"min_purchase,type:numeric(12,2)" json:"min_purchase,omitempty"`
	Applicability  Applicability    `bun:"applicability,notnull" json:"applicability"`
	ValidFrom      time.Time        `bun:"valid_from,notnull" json:"valid_from"`
	ValidTo        time.Time        `bun:"valid_to,notnull" json:"valid_to"`
	IsActive       bool             `bun:"is_active,notnull" json:"is_active"`
	MaxUses        int              `bun:"max_uses,notnull" json:"max_uses"`
	MaxUsesPerUser int              `bun:"max_uses_per_user,notnull" json:"max_uses_per_user"`
	CurrentUses    int              `bun:"current_uses,notnull" json:"current_uses"`
	CreatedAt      time.Time        `bun:"created_at,notnull" json:"created_at"`
}

type TargetKind string

const (
	TargetMovie   TargetKind = "MOVIE"
	TargetTheater TargetKind = "THEATER"
	TargetShow    TargetKind = "SHOW"
)

// CouponTarget is one member of a coupon's applicability set.
type CouponTarget struct {
	bun.BaseModel `bun:"table:coupon_targets"`

	ID       int64      `bun:"id,pk,autoincrement"`
	CouponID int64      `bun:"coupon_id,notnull,unique:coupon_target"`
	Kind     TargetKind `bun:"kind,notnull,unique:coupon_target"`
	TargetID int64      `bun:"target_id,notnull,unique:coupon_target"`
}

type CouponUsage struct {
	bun.BaseModel `bun:"table:coupon_usages"`

	ID             int64           `bun:"id,pk,autoincrement" json:"id"`
	CouponID       int64           `bun:"coupon_id,notnull,unique:coupon_booking" json:"coupon_id"`
	UserID         int64           `bun:"user_id,notnull" json:"user_id"`
	BookingID      int64           `bun:"booking_id,notnull,unique:coupon_booking" json:"booking_id"`
	DiscountAmount decimal.Decimal `bun:"discount_amount,type:numeric(12,2),notnull" json:"discount_amount"`
	UsedAt         time.Time       `bun:"used_at,notnull" json:"used_at"`
}

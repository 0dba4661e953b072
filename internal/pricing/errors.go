package pricing

import (
	"errors"
	"fmt"
)

var ErrCouponInvalid = errors.New("coupon invalid")

type CouponReason string

const (
	ReasonUnknown             CouponReason = "UNKNOWN"
	ReasonNotYetValid         CouponReason = "NOT_YET_VALID"
	ReasonExpired             CouponReason = "EXPIRED"
	ReasonUsageLimitReached   CouponReason = "USAGE_LIMIT_REACHED"
	ReasonPerUserLimitReached CouponReason = "PER_USER_LIMIT_REACHED"
	ReasonMinPurchaseUnmet    CouponReason = "MIN_PURCHASE_UNMET"
	ReasonNotApplicable       CouponReason = "NOT_APPLICABLE"
	ReasonAlreadyApplied      CouponReason = "ALREADY_APPLIED"
)

// CouponError says why a coupon was rejected. It matches ErrCouponInvalid with errors.Is.
type CouponError struct {
	Code   string
	Reason CouponReason
}

func (e *CouponError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", ErrCouponInvalid, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrCouponInvalid, e.Reason, e.Code)
}

func (e *CouponError) Unwrap() error { return ErrCouponInvalid }

func rejected(code string, reason CouponReason) error {
	return &CouponError{Code: code, Reason: reason}
}

// ReasonOf extracts the rejection reason, or "" when err is not a coupon error.
func ReasonOf(err error) CouponReason {
	var ce *CouponError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

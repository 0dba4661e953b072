package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// DB reads the rows a sales report is built from.
type DB struct {
	bun bun.IDB
}

func NewDB(db bun.IDB) *DB {
	return &DB{bun: db}
}

// BookingsByShow returns every booking of a show, optionally narrowed to one status.
func (db *DB) BookingsByShow(ctx context.Context, showID int64, status models.BookingStatus) ([]*models.Booking, error) {
	var bookings []*models.Booking
	q := db.bun.NewSelect().
		Model(&bookings).
		Where("show_id = ?", showID)
	if status != "" {
		q = q.Where("booking_status = ?", status)
	}
	err := q.OrderExpr("created_at ASC").Scan(ctx)
	return bookings, err
}

type CouponUsageRow struct {
	Code           string          `bun:"code"`
	BookingID      int64           `bun:"booking_id"`
	DiscountAmount decimal.Decimal `bun:"discount_amount"`
}

// CouponUsagesByShow joins coupon usages to their coupon codes for one show.
func (db *DB) CouponUsagesByShow(ctx context.Context, showID int64) ([]CouponUsageRow, error) {
	var rows []CouponUsageRow
	err := db.bun.NewRaw(`
		SELECT c.code, u.booking_id, u.discount_amount
		FROM coupon_usages u
		JOIN coupons c ON c.id = u.coupon_id
		JOIN bookings b ON b.id = u.booking_id
		WHERE b.show_id = ?
		ORDER BY c.code`, showID).
		Scan(ctx, &rows)
	return rows, err
}

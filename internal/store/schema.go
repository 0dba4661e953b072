package store

import (
	"context"
	"fmt"

	"ms-booking/internal/models"
)

// Models lists every table in creation order.
var Models = []interface{}{
	(*models.User)(nil),
	(*models.Movie)(nil),
	(*models.Theater)(nil),
	(*models.Show)(nil),
	(*models.Booking)(nil),
	(*models.Ticket)(nil),
	(*models.Coupon)(nil),
	(*models.CouponTarget)(nil),
	(*models.CouponUsage)(nil),
	(*models.CustomerProfile)(nil),
	(*models.PointsTransaction)(nil),
	(*models.TierBenefit)(nil),
	(*models.Notification)(nil),
	(*models.NotificationPreference)(nil),
}

// CreateSchema creates all tables and secondary indexes if missing.
// Postgres deployments use the SQL migrations instead; tests and local
// runs use this.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, m := range Models {
		if _, err := s.Bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Booking)(nil), "idx_bookings_show_status", []string{"show_id", "booking_status"}},
		{(*models.Booking)(nil), "idx_bookings_user", []string{"user_id"}},
		{(*models.CouponUsage)(nil), "idx_coupon_usages_user", []string{"coupon_id", "user_id"}},
		{(*models.PointsTransaction)(nil), "idx_points_profile", []string{"profile_id"}},
		{(*models.Notification)(nil), "idx_notifications_user", []string{"user_id", "created_at"}},
	}
	for _, idx := range indexes {
		_, err := s.Bun.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	s.Logger.LogDatabase("SCHEMA", "all", fmt.Sprintf("%d tables ready", len(Models)))
	return nil
}

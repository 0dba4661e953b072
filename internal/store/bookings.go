package store

import (
	"context"
	"time"

	"ms-booking/internal/models"
)

func (r *Repo) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	_, err := r.db.NewInsert().Model(b).Exec(ctx)
	return wrap(err, "create booking")
}

func (r *Repo) BookingNumberExists(ctx context.Context, number string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Booking)(nil)).
		Where("booking_number = ?", number).
		Exists(ctx)
	return exists, wrap(err, "check booking number")
}

// GetBooking loads a booking with its show and tickets.
func (r *Repo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := r.db.NewSelect().
		Model(&b).
		Relation("Show").
		Relation("Tickets").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get booking")
	}
	return &b, nil
}

// LockBooking → select_for_update on the booking row, tickets loaded after the lock
func (r *Repo) LockBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := r.forUpdate(r.db.NewSelect().
		Model(&b).
		Where("id = ?", id)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock booking")
	}
	tickets, err := r.TicketsByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Tickets = tickets
	return &b, nil
}

// UpdateBooking writes the given columns and always bumps updated_at.
func (r *Repo) UpdateBooking(ctx context.Context, b *models.Booking, columns ...string) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model(b).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)
	return wrap(err, "update booking")
}

// BookingsByUser → all bookings of a user with show and tickets, newest first
func (r *Repo) BookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.NewSelect().
		Model(&bookings).
		Relation("Show").
		Relation("Tickets").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "list bookings")
	}
	return bookings, nil
}

// ReservedBefore → ids of RESERVED bookings created before cutoff
func (r *Repo) ReservedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.Booking)(nil)).
		Column("id").
		Where("booking_status = ?", models.BookingReserved).
		Where("created_at < ?", cutoff.UTC()).
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, wrap(err, "list stale reservations")
	}
	return ids, nil
}

// ConfirmedNeedingReminder → confirmed bookings whose show starts in (from, to] and got no reminder yet
func (r *Repo) ConfirmedNeedingReminder(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := r.db.NewSelect().
		Model(&bookings).
		Relation("Show").
		Where("?TableAlias.booking_status = ?", models.BookingConfirmed).
		Where("?TableAlias.reminder_sent_at IS NULL").
		Where("show.start_time > ?", from.UTC()).
		Where("show.start_time <= ?", to.UTC()).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "list reminder bookings")
	}
	return bookings, nil
}

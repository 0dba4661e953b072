package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

func (r *Repo) CreateTickets(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, t := range tickets {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}
	_, err := r.db.NewInsert().Model(&tickets).Exec(ctx)
	return wrap(err, "create tickets")
}

func (r *Repo) TicketsByBooking(ctx context.Context, bookingID int64) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := r.db.NewSelect().
		Model(&tickets).
		Where("booking_id = ?", bookingID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "list tickets")
	}
	return tickets, nil
}

// OccupiedSeats → seat numbers held by RESERVED or CONFIRMED bookings of a show
func (r *Repo) OccupiedSeats(ctx context.Context, showID int64) ([]string, error) {
	var seats []string
	err := r.db.NewSelect().
		TableExpr("tickets AS t").
		ColumnExpr("t.seat_number").
		Join("JOIN bookings AS b ON b.id = t.booking_id").
		Where("b.show_id = ?", showID).
		Where("b.booking_status IN (?)", bun.In([]string{
			string(models.BookingReserved),
			string(models.BookingConfirmed),
		})).
		Scan(ctx, &seats)
	if err != nil {
		return nil, wrap(err, "list occupied seats")
	}
	return seats, nil
}

func (r *Repo) GetTicketByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	var t models.Ticket
	err := r.db.NewSelect().
		Model(&t).
		Where("ticket_number = ?", number).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "get ticket")
	}
	return &t, nil
}

func (r *Repo) LockTicketByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	var t models.Ticket
	err := r.forUpdate(r.db.NewSelect().
		Model(&t).
		Where("ticket_number = ?", number)).
		Scan(ctx)
	if err != nil {
		return nil, wrap(err, "lock ticket")
	}
	return &t, nil
}

func (r *Repo) MarkTicketUsed(ctx context.Context, t *models.Ticket) error {
	_, err := r.db.NewUpdate().
		Model(t).
		Column("is_used", "used_at").
		WherePK().
		Exec(ctx)
	return wrap(err, "mark ticket used")
}

package tickets_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/auth"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/store/storetest"
	"ms-booking/internal/tickets"
	"ms-booking/internal/tickets/qr"
)

type fixture struct {
	store   *store.Store
	svc     *tickets.TicketService
	owner   *models.User
	staff   *models.User
	other   *models.User
	booking *models.Booking
	ticket  *models.Ticket
}

func newFixture(t *testing.T, status models.BookingStatus) *fixture {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	ctx := context.Background()

	f := &fixture{
		store: s,
		svc:   tickets.NewTicketService(s, qr.NewQRGenerator("test-secret"), nil),
		owner: fx.User("owner@example.com", models.RoleCustomer),
		staff: fx.User("usher@example.com", models.RoleSalesman),
		other: fx.User("other@example.com", models.RoleCustomer),
	}
	show := fx.Show("10", 100, 99, time.Now().Add(24*time.Hour))

	f.booking = &models.Booking{
		BookingNumber: "BK-20300101120000-0001-0001",
		UserID:        f.owner.ID,
		ShowID:        show.ID,
		TotalSeats:    1,
		TotalAmount:   storetest.Money("10"),
		PaymentStatus: models.PaymentCompleted,
		BookingStatus: status,
	}
	require.NoError(t, s.Repo().CreateBooking(ctx, f.booking))
	f.ticket = &models.Ticket{
		TicketNumber: "T-000001-A1-20300101120000",
		BookingID:    f.booking.ID,
		SeatNumber:   "A1",
		SeatCategory: models.SeatStandard,
		Price:        storetest.Money("10"),
	}
	require.NoError(t, s.Repo().CreateTickets(ctx, []*models.Ticket{f.ticket}))
	return f
}

func TestGetTicket_Access(t *testing.T) {
	f := newFixture(t, models.BookingConfirmed)
	ctx := context.Background()

	detail, err := f.svc.GetTicket(ctx, f.owner, f.ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, f.booking.BookingNumber, detail.Booking.BookingNumber)

	_, err = f.svc.GetTicket(ctx, f.staff, f.ticket.TicketNumber)
	assert.NoError(t, err)

	_, err = f.svc.GetTicket(ctx, f.other, f.ticket.TicketNumber)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.GetTicket(ctx, f.owner, "T-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckIn_ForwardOnly(t *testing.T) {
	f := newFixture(t, models.BookingConfirmed)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, f.owner, f.ticket.TicketNumber)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	used, err := f.svc.CheckIn(ctx, f.staff, f.ticket.TicketNumber)
	require.NoError(t, err)
	assert.True(t, used.IsUsed)

	_, err = f.svc.CheckIn(ctx, f.staff, f.ticket.TicketNumber)
	assert.ErrorIs(t, err, tickets.ErrTicketUsed)

	stored, err := f.store.Repo().GetTicketByNumber(ctx, f.ticket.TicketNumber)
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	assert.False(t, stored.UsedAt.IsZero())
}

func TestCheckIn_RequiresConfirmedBooking(t *testing.T) {
	f := newFixture(t, models.BookingCancelled)

	_, err := f.svc.CheckIn(context.Background(), f.staff, f.ticket.TicketNumber)
	assert.ErrorIs(t, err, tickets.ErrTicketNotValid)
}

func TestCheckInByToken(t *testing.T) {
	f := newFixture(t, models.BookingConfirmed)
	ctx := context.Background()

	token, err := f.svc.QR.Encrypt(models.TicketPayload{TicketNumber: f.ticket.TicketNumber})
	require.NoError(t, err)

	used, err := f.svc.CheckInByToken(ctx, f.staff, token)
	require.NoError(t, err)
	assert.Equal(t, f.ticket.TicketNumber, used.TicketNumber)

	forged, err := qr.NewQRGenerator("wrong").Encrypt(models.TicketPayload{TicketNumber: f.ticket.TicketNumber})
	require.NoError(t, err)
	_, err = f.svc.CheckInByToken(ctx, f.staff, forged)
	assert.ErrorIs(t, err, qr.ErrInvalidToken)
}

func TestQRCode(t *testing.T) {
	f := newFixture(t, models.BookingConfirmed)

	png, err := f.svc.QRCode(context.Background(), f.owner, f.ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/store/storetest"
)

func seedBooking(t *testing.T, s *store.Store, userID, showID int64, status models.BookingStatus, seats ...string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	b := &models.Booking{
		BookingNumber: fmt.Sprintf("BK-%d-%d-%s", userID, showID, seats[0]),
		UserID:        userID,
		ShowID:        showID,
		TotalSeats:    len(seats),
		TotalAmount:   storetest.Money("10"),
		PaymentStatus: models.PaymentPending,
		BookingStatus: status,
	}
	require.NoError(t, s.Repo().CreateBooking(ctx, b))

	tickets := make([]*models.Ticket, 0, len(seats))
	for _, seat := range seats {
		tickets = append(tickets, &models.Ticket{
			TicketNumber: fmt.Sprintf("T-%06d-%s", b.ID, seat),
			BookingID:    b.ID,
			SeatNumber:   seat,
			SeatCategory: models.SeatStandard,
			Price:        storetest.Money("5"),
		})
	}
	require.NoError(t, s.Repo().CreateTickets(ctx, tickets))
	return b
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		require.NoError(t, r.CreateUser(ctx, &models.User{Email: "ghost@example.com"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Repo().GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunInTx_RetriesConflictOnce(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	calls := 0
	err := s.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("lock show: %w", store.ErrConflict)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunInTx_SecondConflictSurfaces(t *testing.T) {
	s := storetest.New(t)

	calls := 0
	err := s.RunInTx(context.Background(), func(ctx context.Context, r *store.Repo) error {
		calls++
		return store.ErrConflict
	})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, 2, calls)
}

func TestGetShow_NotFound(t *testing.T) {
	s := storetest.New(t)

	show, err := s.Repo().GetShow(context.Background(), 404)
	assert.Nil(t, show)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOccupiedSeats_OnlyHoldingBookings(t *testing.T) {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	user := fx.User("a@example.com", models.RoleCustomer)
	show := fx.Show("50", 100, 100, time.Now().Add(48*time.Hour))

	seedBooking(t, s, user.ID, show.ID, models.BookingReserved, "A1", "A2")
	seedBooking(t, s, user.ID, show.ID, models.BookingConfirmed, "B1")
	seedBooking(t, s, user.ID, show.ID, models.BookingCancelled, "C1")
	seedBooking(t, s, user.ID, show.ID, models.BookingExpired, "D1")

	seats, err := s.Repo().OccupiedSeats(context.Background(), show.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "A2", "B1"}, seats)
}

func TestGetBooking_LoadsShowAndTickets(t *testing.T) {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	user := fx.User("a@example.com", models.RoleCustomer)
	show := fx.Show("50", 100, 100, time.Now().Add(48*time.Hour))
	b := seedBooking(t, s, user.ID, show.ID, models.BookingReserved, "A1", "A2")

	got, err := s.Repo().GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Show)
	assert.Equal(t, show.ID, got.Show.ID)
	assert.ElementsMatch(t, []string{"A1", "A2"}, got.SeatNumbers())
	assert.True(t, got.TotalAmount.Equal(storetest.Money("10")))
}

func TestCouponUsage_UniquePerBooking(t *testing.T) {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	ctx := context.Background()
	user := fx.User("a@example.com", models.RoleCustomer)
	show := fx.Show("50", 100, 100, time.Now().Add(48*time.Hour))
	b := seedBooking(t, s, user.ID, show.ID, models.BookingReserved, "A1")
	coupon := fx.Coupon(&models.Coupon{Code: "once", Type: models.CouponFixed, DiscountValue: storetest.Money("1")})

	usage := &models.CouponUsage{CouponID: coupon.ID, UserID: user.ID, BookingID: b.ID, DiscountAmount: storetest.Money("1")}
	require.NoError(t, s.Repo().CreateCouponUsage(ctx, usage))

	dup := &models.CouponUsage{CouponID: coupon.ID, UserID: user.ID, BookingID: b.ID, DiscountAmount: storetest.Money("1")}
	err := s.Repo().CreateCouponUsage(ctx, dup)
	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))

	found, err := s.Repo().GetActiveCouponByCode(ctx, " Once ")
	require.NoError(t, err)
	assert.Equal(t, "ONCE", found.Code)
}

func TestSumPoints(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	fx := storetest.Fixtures{T: t, Store: s}
	user := fx.User("a@example.com", models.RoleCustomer)

	profile := &models.CustomerProfile{UserID: user.ID, Tier: models.TierStandard}
	require.NoError(t, s.Repo().CreateProfile(ctx, profile))

	sum, err := s.Repo().SumPoints(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)

	for _, p := range []int64{100, -30, 5} {
		require.NoError(t, s.Repo().CreatePointsTransaction(ctx, &models.PointsTransaction{
			ProfileID: profile.ID, Type: models.PointsAdjustment, Points: p,
		}))
	}
	sum, err = s.Repo().SumPoints(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), sum)
}

func TestPreferences_DefaultThenSaved(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	prefs, err := s.Repo().GetPreferences(ctx, 7)
	require.NoError(t, err)
	assert.True(t, prefs.BookingConfirmations)
	assert.True(t, prefs.EmailEnabled)

	prefs.EmailEnabled = false
	require.NoError(t, s.Repo().SavePreferences(ctx, prefs))
	prefs.ShowReminders = false
	require.NoError(t, s.Repo().SavePreferences(ctx, prefs))

	got, err := s.Repo().GetPreferences(ctx, 7)
	require.NoError(t, err)
	assert.False(t, got.EmailEnabled)
	assert.False(t, got.ShowReminders)
	assert.True(t, got.BookingCancellations)
}

func TestReservedBefore(t *testing.T) {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	ctx := context.Background()
	user := fx.User("a@example.com", models.RoleCustomer)
	show := fx.Show("50", 100, 100, time.Now().Add(48*time.Hour))

	old := seedBooking(t, s, user.ID, show.ID, models.BookingReserved, "A1")
	old.CreatedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, s.Repo().UpdateBooking(ctx, old, "created_at"))
	seedBooking(t, s, user.ID, show.ID, models.BookingReserved, "A2")

	ids, err := s.Repo().ReservedBefore(ctx, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{old.ID}, ids)
}

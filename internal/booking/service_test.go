package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/booking"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/seats"
	"ms-booking/internal/store"
	"ms-booking/internal/store/storetest"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []*models.Notification
}

func (n *recordingNotifier) Enqueue(item *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *recordingNotifier) ofType(t models.NotificationType) []*models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*models.Notification
	for _, item := range n.items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (e *recordingEvents) Publish(ctx context.Context, ev models.BookingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *recordingEvents) types() []models.BookingEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.BookingEventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	t        *testing.T
	store    *store.Store
	fx       storetest.Fixtures
	svc      *booking.Service
	notifier *recordingNotifier
	events   *recordingEvents
	now      time.Time
	customer *models.User
	admin    *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	s := storetest.New(t)
	fx := storetest.Fixtures{T: t, Store: s}
	env := &testEnv{
		t:        t,
		store:    s,
		fx:       fx,
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
		now:      time.Now().UTC().Truncate(time.Second),
		customer: fx.User("customer@example.com", models.RoleCustomer),
		admin:    fx.User("admin@example.com", models.RoleAdmin),
	}

	pr := pricing.NewEngine(nil)
	pr.Now = env.clock
	ly := loyalty.NewEngine(nil)
	ly.Now = env.clock

	env.svc = booking.NewService(s, seats.NewLedger(seats.DefaultGrid, nil, nil), pr, ly,
		env.notifier, env.events, booking.DefaultPolicy(), nil)
	env.svc.Now = env.clock
	return env
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) show(price string, total, available int, startsIn time.Duration) *models.Show {
	return e.fx.Show(price, total, available, e.now.Add(startsIn))
}

func (e *testEnv) book(user *models.User, show *models.Show, seatNumbers ...string) *models.Booking {
	e.t.Helper()
	b, err := e.svc.CreateBooking(context.Background(), user, booking.CreateRequest{ShowID: show.ID, SeatNumbers: seatNumbers})
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) reloadShow(id int64) *models.Show {
	e.t.Helper()
	show, err := e.store.Repo().GetShow(context.Background(), id)
	require.NoError(e.t, err)
	return show
}

func (e *testEnv) reloadBooking(id int64) *models.Booking {
	e.t.Helper()
	b, err := e.store.Repo().GetBooking(context.Background(), id)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) reloadCoupon(id int64) *models.Coupon {
	e.t.Helper()
	c, err := e.store.Repo().GetCoupon(context.Background(), id)
	require.NoError(e.t, err)
	return c
}

// assertInvariants checks the counters against the rows they summarize.
func (e *testEnv) assertInvariants(show *models.Show, coupons ...*models.Coupon) {
	e.t.Helper()
	ctx := context.Background()
	repo := e.store.Repo()

	occupied, err := repo.OccupiedSeats(ctx, show.ID)
	require.NoError(e.t, err)
	current := e.reloadShow(show.ID)
	assert.Equal(e.t, current.TotalSeats-len(occupied), current.AvailableSeats, "available_seats")

	seen := map[string]bool{}
	for _, s := range occupied {
		assert.False(e.t, seen[s], "seat %s held twice", s)
		seen[s] = true
	}

	for _, c := range coupons {
		n, err := repo.CountCouponUsage(ctx, c.ID)
		require.NoError(e.t, err)
		assert.Equal(e.t, n, e.reloadCoupon(c.ID).CurrentUses, "current_uses of %s", c.Code)
	}
}

// assertDiscountMatchesUsage checks that discount_amount mirrors the booking's
// CouponUsage row and that all discounts together stay within the subtotal.
func (e *testEnv) assertDiscountMatchesUsage(b *models.Booking) {
	e.t.Helper()
	usage, err := e.store.Repo().CouponUsageByBooking(context.Background(), b.ID)
	if errors.Is(err, store.ErrNotFound) {
		assert.True(e.t, b.DiscountAmount.IsZero(), "discount_amount %s without a coupon usage", b.DiscountAmount)
	} else {
		require.NoError(e.t, err)
		assert.True(e.t, b.DiscountAmount.Equal(usage.DiscountAmount), "discount_amount %s, usage %s", b.DiscountAmount, usage.DiscountAmount)
	}
	assert.False(e.t, b.DiscountAmount.IsNegative())
	assert.False(e.t, b.TierDiscount.IsNegative())
	assert.False(e.t, b.DiscountAmount.Add(b.TierDiscount).GreaterThan(b.TotalAmount))
}

func money(s string) decimal.Decimal { return storetest.Money(s) }

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	show := env.show("12.50", 100, 100, 48*time.Hour)

	b := env.book(env.customer, show, "a1", "A2")

	assert.Equal(t, models.BookingReserved, b.BookingStatus)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.Equal(t, 2, b.TotalSeats)
	assert.True(t, b.TotalAmount.Equal(money("25")))
	assert.True(t, b.DiscountAmount.IsZero())
	assert.Regexp(t, `^BK-\d{14}-\d{4}-\d{4}$`, b.BookingNumber)
	assert.Equal(t, env.now.Format("20060102150405"), b.BookingNumber[3:17])

	require.Len(t, b.Tickets, 2)
	assert.Regexp(t, `^T-\d{6}-A1-\d{14}$`, b.Tickets[0].TicketNumber)
	assert.Equal(t, models.SeatStandard, b.Tickets[0].SeatCategory)
	assert.True(t, b.Tickets[0].Price.Equal(money("12.50")))

	assert.Equal(t, 98, env.reloadShow(show.ID).AvailableSeats)
	assert.Equal(t, []models.BookingEventType{models.EventBookingCreated}, env.events.types())
	env.assertInvariants(show)
}

func TestCreateBooking_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	show := env.show("10", 100, 100, 48*time.Hour)
	env.book(env.customer, show, "B5")

	create := func(showID int64, seatNumbers ...string) error {
		_, err := env.svc.CreateBooking(ctx, env.customer, booking.CreateRequest{ShowID: showID, SeatNumbers: seatNumbers})
		return err
	}

	var conflict *booking.SeatConflictError
	err := create(show.ID, "B4", "B5")
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"B5"}, conflict.Seats)

	assert.ErrorIs(t, create(show.ID, "C1", "C1"), booking.ErrDuplicateSeat)
	assert.ErrorIs(t, create(show.ID, "Z9"), booking.ErrInvalidSeat)
	assert.ErrorIs(t, create(show.ID), booking.ErrInvalidSeat)
	assert.ErrorIs(t, create(9999, "A1"), store.ErrNotFound)

	past := env.show("10", 100, 100, -time.Hour)
	assert.ErrorIs(t, create(past.ID, "A1"), booking.ErrShowUnavailable)

	inactive := env.show("10", 100, 100, time.Hour)
	_, err = env.store.Bun.NewUpdate().Model(inactive).Set("is_active = ?", false).WherePK().Exec(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, create(inactive.ID, "A1"), booking.ErrShowUnavailable)

	tight := env.show("10", 100, 1, time.Hour)
	assert.ErrorIs(t, create(tight.ID, "A1", "A2"), booking.ErrCapacityExceeded)

	// Nothing moved on failure.
	assert.Equal(t, 99, env.reloadShow(show.ID).AvailableSeats)
	assert.Equal(t, 1, env.reloadShow(tight.ID).AvailableSeats)
}

func TestCreateBooking_ConcurrentOverlap(t *testing.T) {
	env := newTestEnv(t)
	userA := env.customer
	userB := env.fx.User("b@example.com", models.RoleCustomer)
	show := env.show("50", 100, 100, 48*time.Hour)

	// Everything but A1 and A2 is already sold.
	var sold []string
	for _, row := range "ABCDEFGHIJ" {
		for col := 1; col <= 10; col++ {
			seat := fmt.Sprintf("%c%d", row, col)
			if seat != "A1" && seat != "A2" {
				sold = append(sold, seat)
			}
		}
	}
	env.book(env.fx.User("early@example.com", models.RoleCustomer), show, sold...)
	require.Equal(t, 2, env.reloadShow(show.ID).AvailableSeats)

	type outcome struct {
		user *models.User
		b    *models.Booking
		err  error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for _, attempt := range []struct {
		user  *models.User
		seats []string
	}{
		{userA, []string{"A1", "A2"}},
		{userB, []string{"A2", "A3"}},
	} {
		wg.Add(1)
		go func(u *models.User, seatNumbers []string) {
			defer wg.Done()
			b, err := env.svc.CreateBooking(context.Background(), u, booking.CreateRequest{ShowID: show.ID, SeatNumbers: seatNumbers})
			results <- outcome{user: u, b: b, err: err}
		}(attempt.user, attempt.seats)
	}
	wg.Wait()
	close(results)

	var winner, loser *outcome
	for r := range results {
		r := r
		if r.err == nil {
			winner = &r
		} else {
			loser = &r
		}
	}
	require.NotNil(t, winner, "one booking must succeed")
	require.NotNil(t, loser, "one booking must fail")

	assert.True(t, errors.Is(loser.err, booking.ErrSeatConflict) || errors.Is(loser.err, booking.ErrCapacityExceeded),
		"unexpected loser error: %v", loser.err)

	assert.Equal(t, 2-winner.b.TotalSeats, env.reloadShow(show.ID).AvailableSeats)
	loserBookings, err := env.store.Repo().BookingsByUser(context.Background(), loser.user.ID)
	require.NoError(t, err)
	assert.Empty(t, loserBookings)
	env.assertInvariants(show)
}

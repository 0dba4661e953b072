package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/booking"
	"ms-booking/internal/models"
)

func TestScheduler_RejectsBadSpec(t *testing.T) {
	env := newTestEnv(t)
	sched := booking.NewScheduler(env.svc, nil)

	err := sched.Start(context.Background(), "not a schedule", "@every 1m")
	assert.Error(t, err)
}

func TestScheduler_ExpiresReservations(t *testing.T) {
	env := newTestEnv(t)
	show := env.show("10", 100, 100, 48*time.Hour)
	stale := env.book(env.customer, show, "A1")
	env.now = env.now.Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := booking.NewScheduler(env.svc, nil)
	require.NoError(t, sched.Start(ctx, "@every 1s", "@every 1h"))
	defer sched.Stop()

	require.Eventually(t, func() bool {
		b, err := env.store.Repo().GetBooking(context.Background(), stale.ID)
		return err == nil && b.BookingStatus == models.BookingExpired
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, 100, env.reloadShow(show.ID).AvailableSeats)
}

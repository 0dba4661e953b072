package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
	"ms-booking/internal/notification"
	"ms-booking/internal/sse"
	"ms-booking/internal/store"
	"ms-booking/internal/store/storetest"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func setup(t *testing.T, opts notification.Options) (*store.Store, *models.User, *fakeMailer, *sse.Hub, *notification.Dispatcher) {
	s := storetest.New(t)
	user := storetest.Fixtures{T: t, Store: s}.User("fan@example.com", models.RoleCustomer)
	mailer := &fakeMailer{}
	hub := sse.NewHub()
	return s, user, mailer, hub, notification.NewDispatcher(s, mailer, hub, opts, nil)
}

func confirmation(userID int64) *models.Notification {
	return &models.Notification{
		UserID:  &userID,
		Type:    models.NotifyBookingConfirmation,
		Subject: "Booking BK-1 confirmed",
		Content: "Your booking BK-1 is confirmed.",
	}
}

func reload(t *testing.T, s *store.Store, id int64) *models.Notification {
	t.Helper()
	n, err := s.Repo().GetNotification(context.Background(), id)
	require.NoError(t, err)
	return n
}

func TestDeliver_SentByMailAndRealtime(t *testing.T) {
	s, user, mailer, hub, d := setup(t, notification.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live := hub.Subscribe(ctx, user.ID)

	n := confirmation(user.ID)
	require.NoError(t, d.Deliver(ctx, n))

	stored := reload(t, s, n.ID)
	assert.Equal(t, models.NotificationSent, stored.Status)
	assert.False(t, stored.SentAt.IsZero())

	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "fan@example.com", mailer.sent[0].to)
	assert.Equal(t, n.Subject, mailer.sent[0].subject)

	select {
	case got := <-live:
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, models.NotificationSent, got.Status)
	case <-time.After(time.Second):
		t.Fatal("no realtime delivery")
	}
}

func TestDeliver_TransportFailureMarksFailed(t *testing.T) {
	s, user, mailer, hub, d := setup(t, notification.Options{})
	mailer.err = errors.New("relay refused")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live := hub.Subscribe(ctx, user.ID)

	n := confirmation(user.ID)
	err := d.Deliver(ctx, n)
	require.Error(t, err)

	stored := reload(t, s, n.ID)
	assert.Equal(t, models.NotificationFailed, stored.Status)
	assert.Contains(t, stored.Error, "relay refused")
	assert.Empty(t, live)
}

func TestDeliver_MutedTypeStaysPending(t *testing.T) {
	s, user, mailer, hub, d := setup(t, notification.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live := hub.Subscribe(ctx, user.ID)

	prefs := models.DefaultPreferences(user.ID)
	prefs.BookingConfirmations = false
	require.NoError(t, s.Repo().SavePreferences(ctx, prefs))

	n := confirmation(user.ID)
	require.NoError(t, d.Deliver(ctx, n))

	assert.Equal(t, models.NotificationPending, reload(t, s, n.ID).Status)
	assert.Zero(t, mailer.count())
	assert.Empty(t, live)
}

func TestDeliver_EmailDisabledStillSent(t *testing.T) {
	s, user, mailer, _, d := setup(t, notification.Options{})
	ctx := context.Background()

	prefs := models.DefaultPreferences(user.ID)
	prefs.EmailEnabled = false
	require.NoError(t, s.Repo().SavePreferences(ctx, prefs))

	n := confirmation(user.ID)
	require.NoError(t, d.Deliver(ctx, n))
	assert.Equal(t, models.NotificationSent, reload(t, s, n.ID).Status)
	assert.Zero(t, mailer.count())
}

func TestDispatcher_WorkersDrainQueueOnStop(t *testing.T) {
	s, user, mailer, _, d := setup(t, notification.Options{Workers: 3, QueueSize: 16})
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Enqueue(confirmation(user.ID))
	}
	d.Stop()

	list, err := s.Repo().NotificationsByUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 5)
	for _, n := range list {
		assert.Equal(t, models.NotificationSent, n.Status)
	}
	assert.Equal(t, 5, mailer.count())
}

func TestDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	s, user, _, _, d := setup(t, notification.Options{Workers: 1, QueueSize: 0})

	done := make(chan struct{})
	go func() {
		d.Enqueue(confirmation(user.ID))
		d.Enqueue(confirmation(user.ID))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	d.Stop()

	list, err := s.Repo().NotificationsByUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDispatcher_StopDrainsAfterContextCancelled(t *testing.T) {
	s, user, mailer, _, d := setup(t, notification.Options{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	d.Enqueue(confirmation(user.ID))
	d.Stop()

	list, err := s.Repo().NotificationsByUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationSent, list[0].Status)
	assert.Equal(t, 1, mailer.count())
}

func TestDispatcher_EnqueueAfterStopIsDropped(t *testing.T) {
	s, user, mailer, _, d := setup(t, notification.Options{Workers: 2, QueueSize: 0})
	d.Start(context.Background())
	d.Stop()

	d.Enqueue(confirmation(user.ID))
	d.Stop()

	list, err := s.Repo().NotificationsByUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, mailer.count())
}

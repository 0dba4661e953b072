// Package notification persists user notifications and delivers them by
// e-mail and to live SSE subscribers, off the request path.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// Realtime fans a notification out to the user's live connections.
type Realtime interface {
	Publish(n *models.Notification) int
}

type Options struct {
	Workers   int
	QueueSize int
}

// Dispatcher is a worker pool over a buffered queue. Enqueue never blocks: when
// the queue is full the notification is delivered on its own goroutine.
type Dispatcher struct {
	store    *store.Store
	mailer   Mailer
	realtime Realtime
	logger   *logger.Logger
	Now      func() time.Time

	queue   chan *models.Notification
	workers int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher wires the transports. mailer and realtime may be nil.
func NewDispatcher(st *store.Store, mailer Mailer, realtime Realtime, opts Options, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	return &Dispatcher{
		store:    st,
		mailer:   mailer,
		realtime: realtime,
		logger:   log,
		Now:      time.Now,
		queue:    make(chan *models.Notification, opts.QueueSize),
		workers:  opts.Workers,
	}
}

// Start launches the workers. Deliveries already dequeued run to completion
// even after ctx is cancelled, so Stop drains everything that was enqueued.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.logger.Info("NOTIFY", fmt.Sprintf("Dispatcher started with %d workers", d.workers))
}

// Stop closes the queue and waits for queued and detached deliveries to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("NOTIFY", "Dispatcher stopped")
}

// Enqueue hands n to the workers. After Stop the notification is logged and
// dropped.
func (d *Dispatcher) Enqueue(n *models.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn("NOTIFY", fmt.Sprintf("Dispatcher stopped, dropping %s notification", n.Type))
		return
	}
	select {
	case d.queue <- n:
		return
	default:
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliverLogged(context.Background(), n)
	}()
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliverLogged(ctx, n)
	}
}

func (d *Dispatcher) deliverLogged(ctx context.Context, n *models.Notification) {
	if err := d.Deliver(ctx, n); err != nil {
		d.logger.Error("NOTIFY", fmt.Sprintf("Delivery of %s failed: %v", n.Type, err))
	}
}

// Deliver records n as PENDING and runs it through the transports. A type the
// user opted out of stays PENDING. A transport error marks the row FAILED and
// is returned.
func (d *Dispatcher) Deliver(ctx context.Context, n *models.Notification) error {
	repo := d.store.Repo()

	n.Status = models.NotificationPending
	if err := repo.CreateNotification(ctx, n); err != nil {
		return err
	}

	prefs := models.DefaultPreferences(0)
	var user *models.User
	if n.UserID != nil {
		var err error
		if prefs, err = repo.GetPreferences(ctx, *n.UserID); err != nil {
			return err
		}
		if !prefs.Allows(n.Type) {
			d.logger.LogNotification(string(n.Type), *n.UserID, "muted by preferences, left pending")
			return nil
		}
		if user, err = repo.GetUser(ctx, *n.UserID); err != nil {
			return d.finish(ctx, n, prefs, fmt.Errorf("load recipient: %w", err))
		}
	}

	var sendErr error
	if d.mailer != nil && prefs.EmailEnabled && user != nil {
		sendErr = d.mailer.Send(ctx, user.Email, n.Subject, n.Content)
	}
	return d.finish(ctx, n, prefs, sendErr)
}

func (d *Dispatcher) finish(ctx context.Context, n *models.Notification, prefs *models.NotificationPreference, sendErr error) error {
	if sendErr != nil {
		n.Status = models.NotificationFailed
		n.Error = sendErr.Error()
	} else {
		n.Status = models.NotificationSent
		n.SentAt = d.Now().UTC()
	}
	if err := d.store.Repo().UpdateNotificationStatus(ctx, n); err != nil {
		return errors.Join(sendErr, err)
	}

	if sendErr == nil && d.realtime != nil && prefs.RealtimeEnabled {
		d.realtime.Publish(n)
	}

	if n.UserID != nil {
		d.logger.LogNotification(string(n.Type), *n.UserID, string(n.Status))
	}
	return sendErr
}

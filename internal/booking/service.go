// Package booking is the booking coordinator: it owns the reservation state
// machine and performs every inventory, coupon and loyalty mutation of a
// booking in one store transaction.
package booking

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/seats"
	"ms-booking/internal/store"
)

// Notifier takes notifications after commit. Enqueue must not block.
type Notifier interface {
	Enqueue(n *models.Notification)
}

type EventPublisher interface {
	Publish(ctx context.Context, event models.BookingEvent) error
}

type Policy struct {
	HoldWindow   time.Duration
	CancelWindow time.Duration
	ReminderLead time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		HoldWindow:   15 * time.Minute,
		CancelWindow: 3 * time.Hour,
		ReminderLead: 24 * time.Hour,
	}
}

type Service struct {
	Store    *store.Store
	Seats    *seats.Ledger
	Pricing  *pricing.Engine
	Loyalty  *loyalty.Engine
	Notifier Notifier
	Events   EventPublisher
	Policy   Policy
	Now      func() time.Time
	logger   *logger.Logger
}

func NewService(st *store.Store, ledger *seats.Ledger, pr *pricing.Engine, ly *loyalty.Engine,
	notifier Notifier, events EventPublisher, policy Policy, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		Store:    st,
		Seats:    ledger,
		Pricing:  pr,
		Loyalty:  ly,
		Notifier: notifier,
		Events:   events,
		Policy:   policy,
		Now:      time.Now,
		logger:   log,
	}
}

// effects are the side effects of a transaction, released only after it commits.
type effects struct {
	notifications []*models.Notification
	events        []models.BookingEvent
	shows         []int64
}

func (fx *effects) notify(n *models.Notification) {
	fx.notifications = append(fx.notifications, n)
}

func (fx *effects) emit(t models.BookingEventType, b *models.Booking) {
	fx.events = append(fx.events, models.NewBookingEvent(t, b, b.SeatNumbers()))
}

func (fx *effects) touched(showID int64) {
	fx.shows = append(fx.shows, showID)
}

// inTx runs fn in a store transaction and flushes its effects once it commits.
// A retried attempt starts from empty effects.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, r *store.Repo, fx *effects) error) error {
	var fx *effects
	err := s.Store.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		fx = &effects{}
		return fn(ctx, r, fx)
	})
	if err != nil {
		return err
	}
	s.flush(ctx, fx)
	return nil
}

func (s *Service) flush(ctx context.Context, fx *effects) {
	s.Seats.Invalidate(ctx, fx.shows...)

	if s.Notifier != nil {
		for _, n := range fx.notifications {
			s.Notifier.Enqueue(n)
		}
	}

	if s.Events != nil {
		for _, ev := range fx.events {
			if err := s.Events.Publish(ctx, ev); err != nil {
				s.logger.Error("EVENTS", fmt.Sprintf("Failed to publish %s for %s: %v", ev.Type, ev.BookingNumber, err))
			}
		}
	}
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

// GetBooking returns a booking with its show and tickets to its owner or an admin.
func (s *Service) GetBooking(ctx context.Context, user *models.User, id int64) (*models.Booking, error) {
	b, err := s.Store.Repo().GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(user, b.UserID); err != nil {
		return nil, err
	}
	return b, nil
}

// ActiveBookings lists the user's RESERVED or CONFIRMED bookings for shows that have not started.
func (s *Service) ActiveBookings(ctx context.Context, user *models.User) ([]*models.Booking, error) {
	all, err := s.Store.Repo().BookingsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	active := make([]*models.Booking, 0, len(all))
	for _, b := range all {
		if b.BookingStatus.Holding() && b.Show != nil && b.Show.StartTime.After(now) {
			active = append(active, b)
		}
	}
	return active, nil
}

// BookingHistory lists the user's bookings whose show has already started.
func (s *Service) BookingHistory(ctx context.Context, user *models.User) ([]*models.Booking, error) {
	all, err := s.Store.Repo().BookingsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	past := make([]*models.Booking, 0, len(all))
	for _, b := range all {
		if b.Show != nil && !b.Show.StartTime.After(now) {
			past = append(past, b)
		}
	}
	return past, nil
}

// SeatMap returns the seat map of an active show. Inactive shows read as not found.
func (s *Service) SeatMap(ctx context.Context, showID int64) (*seats.SeatMap, error) {
	repo := s.Store.Repo()
	show, err := repo.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	if !show.IsActive {
		return nil, fmt.Errorf("show %d is inactive: %w", showID, store.ErrNotFound)
	}
	return s.Seats.AvailableSeatsFor(ctx, repo, show)
}

type QuoteRequest struct {
	ShowID      int64
	SeatNumbers []string
	CouponCode  string
}

// Quote previews the price of a booking without writing anything.
func (s *Service) Quote(ctx context.Context, user *models.User, req QuoteRequest) (*pricing.Quote, error) {
	repo := s.Store.Repo()
	show, err := repo.GetShow(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookable(show); err != nil {
		return nil, err
	}
	held, err := s.Seats.ValidateHold(ctx, repo, show, req.SeatNumbers)
	if err != nil {
		return nil, err
	}
	return s.Pricing.Quote(ctx, repo, pricing.DraftFor(show, user.ID, len(held)), req.CouponCode)
}

func (s *Service) checkBookable(show *models.Show) error {
	if !show.IsActive {
		return fmt.Errorf("%w: show %d is inactive", ErrShowUnavailable, show.ID)
	}
	if !show.StartTime.After(s.now()) {
		return fmt.Errorf("%w: show %d has started", ErrShowUnavailable, show.ID)
	}
	return nil
}

package booking

import (
	"context"
	"errors"
	"fmt"

	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// SendShowReminders notifies every confirmed booking whose show starts within
// the reminder lead time. reminder_sent_at makes each reminder at-most-once.
func (s *Service) SendShowReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.Store.Repo().ConfirmedNeedingReminder(ctx, now, now.Add(s.Policy.ReminderLead))
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, candidate := range due {
		show := candidate.Show
		done := false
		err := s.inTx(ctx, func(ctx context.Context, r *store.Repo, fx *effects) error {
			done = false
			b, err := r.LockBooking(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if b.BookingStatus != models.BookingConfirmed || !b.ReminderSentAt.IsZero() {
				return nil
			}
			b.ReminderSentAt = now
			if err := r.UpdateBooking(ctx, b, "reminder_sent_at"); err != nil {
				return err
			}
			fx.notify(reminderNotice(b, show))
			done = true
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("remind booking %d: %w", candidate.ID, err))
			continue
		}
		if done {
			sent++
		}
	}
	if sent > 0 {
		s.logger.Info("BOOKING", fmt.Sprintf("Queued %d show reminders", sent))
	}
	return sent, errors.Join(errs...)
}

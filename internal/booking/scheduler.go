package booking

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"ms-booking/internal/logger"
)

// Scheduler runs reservation expiry and show reminders on cron schedules.
// A run that is still going when the next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *logger.Logger
}

func NewScheduler(service *Service, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		service: service,
		logger:  log,
	}
}

// Start registers both jobs and starts the cron loop. Jobs stop receiving new
// runs once ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context, expirySpec, reminderSpec string) error {
	if _, err := s.cron.AddFunc(expirySpec, func() { s.runExpiry(ctx) }); err != nil {
		return fmt.Errorf("schedule expiry %q: %w", expirySpec, err)
	}
	if _, err := s.cron.AddFunc(reminderSpec, func() { s.runReminders(ctx) }); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", reminderSpec, err)
	}
	s.cron.Start()
	s.logger.Info("SCHEDULER", fmt.Sprintf("Started: expiry=%s reminders=%s", expirySpec, reminderSpec))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("SCHEDULER", "Stopped")
}

func (s *Scheduler) runExpiry(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.service.ExpireReservations(ctx)
	if err != nil {
		s.logger.Error("SCHEDULER", fmt.Sprintf("Reservation expiry: %v", err))
	}
	if n > 0 {
		s.logger.Info("SCHEDULER", fmt.Sprintf("Expired %d reservations", n))
	}
}

func (s *Scheduler) runReminders(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.service.SendShowReminders(ctx); err != nil {
		s.logger.Error("SCHEDULER", fmt.Sprintf("Show reminders: %v", err))
	}
}

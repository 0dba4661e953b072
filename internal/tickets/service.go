// Package tickets serves issued tickets: lookup, QR rendering and check-in.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets/qr"
)

var (
	ErrTicketUsed     = errors.New("ticket has already been used")
	ErrTicketNotValid = errors.New("ticket is not valid for entry")
)

type TicketService struct {
	Store  *store.Store
	QR     *qr.QRGenerator
	Now    func() time.Time
	logger *logger.Logger
}

func NewTicketService(st *store.Store, gen *qr.QRGenerator, log *logger.Logger) *TicketService {
	if log == nil {
		log = logger.NewNop()
	}
	return &TicketService{Store: st, QR: gen, Now: time.Now, logger: log}
}

// TicketDetail is a ticket with the booking it belongs to.
type TicketDetail struct {
	Ticket  *models.Ticket  `json:"ticket"`
	Booking *models.Booking `json:"booking"`
}

// GetTicket returns a ticket to the booking owner or to staff.
func (s *TicketService) GetTicket(ctx context.Context, user *models.User, number string) (*TicketDetail, error) {
	repo := s.Store.Repo()
	t, err := repo.GetTicketByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	b, err := repo.GetBooking(ctx, t.BookingID)
	if err != nil {
		return nil, err
	}
	if err := canView(user, b); err != nil {
		return nil, err
	}
	b.Tickets = nil
	return &TicketDetail{Ticket: t, Booking: b}, nil
}

// QRCode renders the encrypted entry code of a ticket as a PNG.
func (s *TicketService) QRCode(ctx context.Context, user *models.User, number string) ([]byte, error) {
	detail, err := s.GetTicket(ctx, user, number)
	if err != nil {
		return nil, err
	}
	return s.QR.GenerateEncryptedQR(payloadFor(detail.Ticket, detail.Booking))
}

// CheckIn marks a ticket of a confirmed booking as used. It only moves forward:
// a second check-in fails with ErrTicketUsed.
func (s *TicketService) CheckIn(ctx context.Context, staff *models.User, number string) (*models.Ticket, error) {
	if err := auth.RequireStaff(staff); err != nil {
		return nil, err
	}

	var ticket *models.Ticket
	err := s.Store.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		t, err := r.LockTicketByNumber(ctx, number)
		if err != nil {
			return err
		}
		b, err := r.GetBooking(ctx, t.BookingID)
		if err != nil {
			return err
		}
		if b.BookingStatus != models.BookingConfirmed {
			return fmt.Errorf("%w: booking %s is %s", ErrTicketNotValid, b.BookingNumber, b.BookingStatus)
		}
		if t.IsUsed {
			return fmt.Errorf("%w: checked in at %s", ErrTicketUsed, t.UsedAt.Format(time.RFC3339))
		}

		t.IsUsed = true
		t.UsedAt = s.Now().UTC()
		if err := r.MarkTicketUsed(ctx, t); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("TICKETS", fmt.Sprintf("Ticket %s checked in by %d", ticket.TicketNumber, staff.ID))
	return ticket, nil
}

// CheckInByToken checks in the ticket named by a scanned QR token.
func (s *TicketService) CheckInByToken(ctx context.Context, staff *models.User, token string) (*models.Ticket, error) {
	if err := auth.RequireStaff(staff); err != nil {
		return nil, err
	}
	payload, err := s.QR.Decrypt(token)
	if err != nil {
		s.logger.LogSecurity("QR_REJECTED", fmt.Sprintf("staff=%d: %v", staff.ID, err))
		return nil, err
	}
	return s.CheckIn(ctx, staff, payload.TicketNumber)
}

func canView(user *models.User, b *models.Booking) error {
	if err := auth.RequireOwnerOrAdmin(user, b.UserID); err == nil {
		return nil
	}
	return auth.RequireStaff(user)
}

func payloadFor(t *models.Ticket, b *models.Booking) models.TicketPayload {
	p := models.TicketPayload{
		TicketNumber:  t.TicketNumber,
		BookingNumber: b.BookingNumber,
		ShowID:        b.ShowID,
		SeatNumber:    t.SeatNumber,
	}
	if b.Show != nil {
		p.StartTime = b.Show.StartTime
	}
	return p
}

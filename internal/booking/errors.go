package booking

import (
	"errors"

	"ms-booking/internal/seats"
)

var (
	ErrShowUnavailable    = errors.New("show is not available for booking")
	ErrInvalidState       = errors.New("booking is not in a state that allows this operation")
	ErrNotCancellable     = errors.New("booking cannot be cancelled")
	ErrCancelWindowClosed = errors.New("cancellation window has closed")

	ErrSeatConflict     = seats.ErrSeatConflict
	ErrDuplicateSeat    = seats.ErrDuplicateSeat
	ErrInvalidSeat      = seats.ErrInvalidSeat
	ErrCapacityExceeded = seats.ErrCapacityExceeded
)

// SeatConflictError carries the clashing seats; it matches ErrSeatConflict.
type SeatConflictError = seats.SeatConflictError

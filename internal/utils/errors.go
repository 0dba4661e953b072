package utils

import (
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/pricing"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets"
	"ms-booking/internal/tickets/qr"
)

var badRequestCodes = []struct {
	err  error
	code string
}{
	{booking.ErrShowUnavailable, "SHOW_UNAVAILABLE"},
	{booking.ErrCapacityExceeded, "CAPACITY_EXCEEDED"},
	{booking.ErrDuplicateSeat, "DUPLICATE_SEAT"},
	{booking.ErrInvalidSeat, "INVALID_SEAT"},
	{booking.ErrInvalidState, "INVALID_STATE"},
	{booking.ErrNotCancellable, "NOT_CANCELLABLE"},
	{booking.ErrCancelWindowClosed, "CANCEL_WINDOW_CLOSED"},
	{loyalty.ErrPointsUnderflow, "POINTS_UNDERFLOW"},
	{loyalty.ErrUnknownTier, "UNKNOWN_TIER"},
	{tickets.ErrTicketUsed, "TICKET_USED"},
	{tickets.ErrTicketNotValid, "TICKET_NOT_VALID"},
	{qr.ErrInvalidToken, "INVALID_TICKET_TOKEN"},
}

// ErrorResponse maps an error to its HTTP status and body.
func ErrorResponse(err error) (int, ErrorBody) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, ErrorBody{Error: "VALIDATION", Message: reqErr.Message}
	}

	var conflict *booking.SeatConflictError
	if errors.As(err, &conflict) {
		return http.StatusBadRequest, ErrorBody{Error: "SEAT_CONFLICT", Message: err.Error(), Seats: conflict.Seats}
	}

	var coupon *pricing.CouponError
	if errors.As(err, &coupon) {
		return http.StatusBadRequest, ErrorBody{Error: "COUPON_INVALID", Message: err.Error(), Reason: string(coupon.Reason)}
	}

	for _, c := range badRequestCodes {
		if errors.Is(err, c.err) {
			return http.StatusBadRequest, ErrorBody{Error: c.code, Message: err.Error()}
		}
	}

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorBody{Error: "UNAUTHENTICATED", Message: "authentication required"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "FORBIDDEN", Message: "not allowed"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, ErrorBody{Error: "CONFLICT", Message: "the request collided with another update, retry"}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "INTERNAL", Message: "internal server error"}
}

// WriteError writes the mapped error response. Server errors are logged with
// the underlying cause, which never reaches the client.
func WriteError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	status, body := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		log.Debug("API", fmt.Sprintf("%s: %d %s: %v", op, status, body.Error, err))
	}
	WriteErrorBody(w, status, body)
}

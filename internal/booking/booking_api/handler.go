// Package booking_api exposes the booking coordinator over REST.
package booking_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/seats"
	"ms-booking/internal/utils"
)

// BookingService is the coordinator surface the handlers use. *booking.Service satisfies it.
type BookingService interface {
	SeatMap(ctx context.Context, showID int64) (*seats.SeatMap, error)
	Quote(ctx context.Context, user *models.User, req booking.QuoteRequest) (*pricing.Quote, error)
	CreateBooking(ctx context.Context, user *models.User, req booking.CreateRequest) (*models.Booking, error)
	CreateVIPReservation(ctx context.Context, admin *models.User, req booking.VIPRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, user *models.User, id int64) (*models.Booking, error)
	ApplyCoupon(ctx context.Context, user *models.User, bookingID int64, code string) (*booking.CouponResult, error)
	ConfirmPayment(ctx context.Context, user *models.User, bookingID int64, paymentReference string) (*models.Booking, error)
	Cancel(ctx context.Context, user *models.User, bookingID int64) (*models.Booking, error)
	ActiveBookings(ctx context.Context, user *models.User) ([]*models.Booking, error)
	BookingHistory(ctx context.Context, user *models.User) ([]*models.Booking, error)
}

type Handler struct {
	Service BookingService
	Logger  *logger.Logger
}

func NewHandler(service BookingService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{Service: service, Logger: log}
}

// Routes mounts the booking endpoints. The router must already run the auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/shows/{id}/seats", h.GetSeatMap)

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Post("/quote", h.Quote)
		r.Post("/vip-reservation", h.CreateVIPReservation)
		r.Get("/active", h.ActiveBookings)
		r.Get("/history", h.BookingHistory)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/apply-coupon", h.ApplyCoupon)
		r.Post("/{id}/confirm-payment", h.ConfirmPayment)
		r.Post("/{id}/cancel", h.Cancel)
	})
}

type createBookingRequest struct {
	ShowID        int64    `json:"show_id" validate:"required,gt=0"`
	SeatNumbers   []string `json:"seat_numbers" validate:"required,min=1,max=100,dive,required,max=4"`
	PaymentMethod string   `json:"payment_method" validate:"omitempty,max=50"`
}

type quoteRequest struct {
	ShowID      int64    `json:"show_id" validate:"required,gt=0"`
	SeatNumbers []string `json:"seat_numbers" validate:"required,min=1,max=100,dive,required,max=4"`
	CouponCode  string   `json:"coupon_code" validate:"omitempty,max=32"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type confirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=100"`
}

type vipReservationRequest struct {
	ShowID      int64            `json:"show_id" validate:"required,gt=0"`
	UserEmail   string           `json:"user_email" validate:"required,email"`
	SeatNumbers []string         `json:"seat_numbers" validate:"required,min=1,max=100,dive,required,max=4"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
}

func (h *Handler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	showID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, h.Logger, "GetSeatMap", err)
		return
	}
	m, err := h.Service.SeatMap(r.Context(), showID)
	if err != nil {
		utils.WriteError(w, h.Logger, "GetSeatMap", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r, "Quote")
	if !ok {
		return
	}
	var req quoteRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "Quote", err)
		return
	}
	q, err := h.Service.Quote(r.Context(), user, booking.QuoteRequest{
		ShowID:      req.ShowID,
		SeatNumbers: req.SeatNumbers,
		CouponCode:  req.CouponCode,
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "Quote", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r, "CreateBooking")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "CreateBooking", err)
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("CreateBooking: user=%d show=%d seats=%v", user.ID, req.ShowID, req.SeatNumbers))

	b, err := h.Service.CreateBooking(r.Context(), user, booking.CreateRequest{
		ShowID:        req.ShowID,
		SeatNumbers:   req.SeatNumbers,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "CreateBooking", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) CreateVIPReservation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r, "CreateVIPReservation")
	if !ok {
		return
	}
	var req vipReservationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "CreateVIPReservation", err)
		return
	}
	b, err := h.Service.CreateVIPReservation(r.Context(), user, booking.VIPRequest{
		UserEmail:   req.UserEmail,
		ShowID:      req.ShowID,
		SeatNumbers: req.SeatNumbers,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "CreateVIPReservation", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "GetBooking")
	if !ok {
		return
	}
	b, err := h.Service.GetBooking(r.Context(), user, id)
	if err != nil {
		utils.WriteError(w, h.Logger, "GetBooking", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "ApplyCoupon")
	if !ok {
		return
	}
	var req applyCouponRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "ApplyCoupon", err)
		return
	}
	res, err := h.Service.ApplyCoupon(r.Context(), user, id, req.Code)
	if err != nil {
		utils.WriteError(w, h.Logger, "ApplyCoupon", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "ConfirmPayment")
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, h.Logger, "ConfirmPayment", err)
			return
		}
	}
	b, err := h.Service.ConfirmPayment(r.Context(), user, id, req.PaymentReference)
	if err != nil {
		utils.WriteError(w, h.Logger, "ConfirmPayment", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "Cancel")
	if !ok {
		return
	}
	b, err := h.Service.Cancel(r.Context(), user, id)
	if err != nil {
		utils.WriteError(w, h.Logger, "Cancel", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) ActiveBookings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r, "ActiveBookings")
	if !ok {
		return
	}
	list, err := h.Service.ActiveBookings(r.Context(), user)
	if err != nil {
		utils.WriteError(w, h.Logger, "ActiveBookings", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) BookingHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r, "BookingHistory")
	if !ok {
		return
	}
	list, err := h.Service.BookingHistory(r.Context(), user)
	if err != nil {
		utils.WriteError(w, h.Logger, "BookingHistory", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request, op string) (*models.User, bool) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) userAndID(w http.ResponseWriter, r *http.Request, op string) (*models.User, int64, bool) {
	user, ok := h.user(w, r, op)
	if !ok {
		return nil, 0, false
	}
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, h.Logger, op, err)
		return nil, 0, false
	}
	return user, id, true
}

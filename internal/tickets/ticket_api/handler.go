package ticket_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/tickets"
	"ms-booking/internal/utils"
)

// TicketService is satisfied by *tickets.TicketService.
type TicketService interface {
	GetTicket(ctx context.Context, user *models.User, number string) (*tickets.TicketDetail, error)
	QRCode(ctx context.Context, user *models.User, number string) ([]byte, error)
	CheckIn(ctx context.Context, staff *models.User, number string) (*models.Ticket, error)
	CheckInByToken(ctx context.Context, staff *models.User, token string) (*models.Ticket, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{TicketService: ticketService, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Post("/check-in", h.CheckinByQR)
		r.Get("/{number}", h.GetTicket)
		r.Get("/{number}/qr", h.GetQRCode)
		r.Post("/{number}/check-in", h.CheckinTicket)
	})
}

// checkinRequest carries the scanned code: {"encrypted_qr": "base64_encrypted_string"}
type checkinRequest struct {
	EncryptedQR string `json:"encrypted_qr" validate:"required"`
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "GetTicket", err)
		return
	}
	detail, err := h.TicketService.GetTicket(r.Context(), user, chi.URLParam(r, "number"))
	if err != nil {
		utils.WriteError(w, h.Logger, "GetTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, detail)
}

// GetQRCode returns the ticket's encrypted entry code as a PNG image.
func (h *Handler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "GetQRCode", err)
		return
	}
	png, err := h.TicketService.QRCode(r.Context(), user, chi.URLParam(r, "number"))
	if err != nil {
		utils.WriteError(w, h.Logger, "GetQRCode", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "CheckinTicket", err)
		return
	}
	t, err := h.TicketService.CheckIn(r.Context(), user, chi.URLParam(r, "number"))
	if err != nil {
		utils.WriteError(w, h.Logger, "CheckinTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

// CheckinByQR checks in the ticket encoded in a scanned QR code.
func (h *Handler) CheckinByQR(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "CheckinByQR", err)
		return
	}
	var req checkinRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "CheckinByQR", err)
		return
	}
	t, err := h.TicketService.CheckInByToken(r.Context(), user, req.EncryptedQR)
	if err != nil {
		utils.WriteError(w, h.Logger, "CheckinByQR", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, t)
}

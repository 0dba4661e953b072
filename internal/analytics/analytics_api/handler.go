package analytics_api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/analytics"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/reports/shows/{id}/sales", h.GetShowSales)
}

// GetShowSales serves the sales report of one show to staff.
// ?status=CONFIRMED narrows the report to one booking status.
func (h *Handler) GetShowSales(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err == nil {
		err = auth.RequireStaff(user)
	}
	if err != nil {
		utils.WriteError(w, h.Logger, "GetShowSales", err)
		return
	}

	showID, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, h.Logger, "GetShowSales", err)
		return
	}

	status := models.BookingStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", models.BookingReserved, models.BookingConfirmed, models.BookingCancelled, models.BookingExpired:
	default:
		utils.WriteError(w, h.Logger, "GetShowSales", &utils.RequestError{Message: "invalid status " + string(status)})
		return
	}

	report, err := h.Service.GetShowSales(r.Context(), showID, status)
	if err != nil {
		utils.WriteError(w, h.Logger, "GetShowSales", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

package notification_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
	"ms-booking/internal/utils"
)

const defaultListLimit = 50

// Subscriber is the realtime side of notifications. *sse.Hub satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, userID int64) <-chan *models.Notification
}

type Handler struct {
	Store  *store.Store
	Hub    Subscriber
	Logger *logger.Logger
}

func NewHandler(st *store.Store, hub Subscriber, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{Store: st, Hub: hub, Logger: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stream", h.Stream)
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.UpdatePreferences)
		r.Post("/{id}/read", h.MarkRead)
	})
}

// preferencesRequest is a partial update; omitted fields keep their value.
type preferencesRequest struct {
	BookingConfirmations *bool `json:"booking_confirmations"`
	BookingCancellations *bool `json:"booking_cancellations"`
	ShowReminders        *bool `json:"show_reminders"`
	LoyaltyUpdates       *bool `json:"loyalty_updates"`
	EmailEnabled         *bool `json:"email_enabled"`
	RealtimeEnabled      *bool `json:"realtime_enabled"`
}

func (req preferencesRequest) apply(p *models.NotificationPreference) {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.BookingConfirmations, req.BookingConfirmations)
	set(&p.BookingCancellations, req.BookingCancellations)
	set(&p.ShowReminders, req.ShowReminders)
	set(&p.LoyaltyUpdates, req.LoyaltyUpdates)
	set(&p.EmailEnabled, req.EmailEnabled)
	set(&p.RealtimeEnabled, req.RealtimeEnabled)
}

// List returns the caller's notifications, newest first. ?unread=true keeps only unread ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "ListNotifications", err)
		return
	}
	limit, err := utils.QueryInt(r, "limit", defaultListLimit)
	if err != nil {
		utils.WriteError(w, h.Logger, "ListNotifications", err)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.Store.Repo().NotificationsByUser(r.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		utils.WriteError(w, h.Logger, "ListNotifications", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "MarkRead", err)
		return
	}
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, h.Logger, "MarkRead", err)
		return
	}

	repo := h.Store.Repo()
	n, err := repo.GetNotification(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.Logger, "MarkRead", err)
		return
	}
	if n.UserID == nil || *n.UserID != user.ID {
		utils.WriteError(w, h.Logger, "MarkRead", auth.ErrForbidden)
		return
	}
	if !n.IsRead {
		if err := repo.MarkNotificationRead(r.Context(), n); err != nil {
			utils.WriteError(w, h.Logger, "MarkRead", err)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "GetPreferences", err)
		return
	}
	prefs, err := h.Store.Repo().GetPreferences(r.Context(), user.ID)
	if err != nil {
		utils.WriteError(w, h.Logger, "GetPreferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, prefs)
}

func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "UpdatePreferences", err)
		return
	}
	var req preferencesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, h.Logger, "UpdatePreferences", err)
		return
	}

	var prefs *models.NotificationPreference
	err = h.Store.RunInTx(r.Context(), func(ctx context.Context, repo *store.Repo) error {
		var err error
		prefs, err = repo.GetPreferences(ctx, user.ID)
		if err != nil {
			return err
		}
		req.apply(prefs)
		return repo.SavePreferences(ctx, prefs)
	})
	if err != nil {
		utils.WriteError(w, h.Logger, "UpdatePreferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, prefs)
}

// Stream pushes the caller's notifications as server-sent events until the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFrom(r.Context())
	if err != nil {
		utils.WriteError(w, h.Logger, "StreamNotifications", err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	events := h.Hub.Subscribe(ctx, user.ID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%d}\n\n", user.ID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to notification stream for user %d", user.ID))

	for {
		select {
		case n, ok := <-events:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for user %d", user.ID))
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize notification %d: %v", n.ID, err))
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from notification stream for user %d", user.ID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}

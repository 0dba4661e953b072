// Package server assembles the HTTP router of the booking service.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ms-booking/internal/analytics/analytics_api"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty/loyalty_api"
	"ms-booking/internal/notification/notification_api"
	"ms-booking/internal/tickets/ticket_api"
	"ms-booking/internal/utils"
)

// Deps is everything the router mounts. Nil handlers are skipped, so a
// binary can serve a subset of the API. Revocations may be nil.
type Deps struct {
	Logger      *logger.Logger
	Verifier    auth.TokenVerifier
	Users       auth.UserLoader
	Revocations auth.Revocations
	Login       *auth.LoginService

	Bookings      *booking_api.Handler
	Loyalty       *loyalty_api.Handler
	Notifications *notification_api.Handler
	Tickets       *ticket_api.Handler
	Reports       *analytics_api.Handler
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Login != nil {
		r.Post("/api/auth/login", d.Login.HandleLogin)
		log.Info("ROUTER", "Public login endpoint registered at /api/auth/login")
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.Verifier, d.Users, d.Revocations, log))
		log.Info("AUTH", "Token middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			if d.Login != nil {
				r.Post("/auth/logout", d.Login.HandleLogout)
			}
			if d.Bookings != nil {
				d.Bookings.Routes(r)
				log.Info("ROUTER", "Booking routes registered under /api/bookings and /api/shows")
			}
			if d.Loyalty != nil {
				d.Loyalty.Routes(r)
				log.Info("ROUTER", "Loyalty routes registered under /api/loyalty")
			}
			if d.Notifications != nil {
				d.Notifications.Routes(r)
				log.Info("ROUTER", "Notification routes registered under /api/notifications")
			}
			if d.Tickets != nil {
				d.Tickets.Routes(r)
				log.Info("ROUTER", "Ticket routes registered under /api/tickets")
			}
			if d.Reports != nil {
				d.Reports.Routes(r)
				log.Info("ROUTER", "Sales report routes registered under /api/reports")
			}
		})
	})

	return r
}

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, status, time.Since(start))
		})
	}
}

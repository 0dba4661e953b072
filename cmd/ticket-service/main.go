// Command ticket-service is the slim door service: ticket lookup, QR codes
// and check-in, without the booking coordinator.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/logger"
	"ms-booking/internal/server"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/tickets/ticket_api"
)

func main() {
	logger := logger.NewLogger("ticket-service")
	defer logger.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := database.OpenBun(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	st := store.New(bunDB, logger)

	var revocations auth.Revocations
	if cfg.Redis.Enabled {
		redisClient, err := auth.InitializeRedis(cfg.Redis.Addr, logger)
		if err != nil {
			logger.Warn("REDIS", fmt.Sprintf("Redis unavailable, revoked tokens are not checked: %v", err))
		} else {
			defer redisClient.Close()
			revocations = auth.NewRevocationList(redisClient)
		}
	}

	service := tickets.NewTicketService(st, qr.NewQRGenerator(cfg.Tickets.QRSecret), logger)
	router := server.NewRouter(server.Deps{
		Logger:      logger,
		Verifier:    auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Users:       st.Repo(),
		Revocations: revocations,
		Tickets:     ticket_api.NewHandler(service, logger),
	})

	port := os.Getenv("TICKET_SERVICE_PORT")
	if port == "" {
		port = ":8080"
	}
	srv := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Ticket Service running on %s", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info("APP", "Ticket Service shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-booking/internal/analytics"
	"ms-booking/internal/analytics/analytics_api"
	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/events"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/loyalty/loyalty_api"
	"ms-booking/internal/models"
	"ms-booking/internal/notification"
	"ms-booking/internal/notification/notification_api"
	"ms-booking/internal/pricing"
	"ms-booking/internal/seats"
	"ms-booking/internal/server"
	"ms-booking/internal/sse"
	"ms-booking/internal/store"
	"ms-booking/internal/tickets"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/tickets/ticket_api"
)

func main() {
	logger := logger.NewLogger("booking-service")
	defer logger.Close()

	logger.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrationDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	runner := migrations.NewRunner(migrationDB, migrations.MigrateOptions{MigrationsDir: cfg.Database.MigrationsDir}, logger)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("MIGRATE", err.Error())
	}
	runner.Close()

	bunDB, err := database.OpenBun(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	st := store.New(bunDB, logger)

	if err := st.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		return loyalty.SeedTierBenefits(ctx, r)
	}); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to seed tier benefits: %v", err))
	}

	// Redis backs the seat-map cache and the token revocation list. Without it
	// both are switched off and the service keeps running.
	var (
		redisClient *redis.Client
		seatCache   seats.Cache
		revoked     *auth.RevocationList
		revocations auth.Revocations
	)
	if cfg.Redis.Enabled {
		redisClient, err = auth.InitializeRedis(cfg.Redis.Addr, logger)
		if err != nil {
			logger.Warn("REDIS", fmt.Sprintf("Redis unavailable, running without seat cache and logout: %v", err))
		} else {
			defer redisClient.Close()
			seatCache = seats.NewRedisCache(redisClient, cfg.Redis.SeatCacheTTL)
			revoked = auth.NewRevocationList(redisClient)
			revocations = revoked
		}
	}

	publisher, publisherCloser, err := events.New(cfg.Broker, logger)
	if err != nil {
		logger.Fatal("EVENTS", err.Error())
	}
	defer publisherCloser.Close()

	if cfg.Broker.Kind == "kafka" && cfg.Broker.AuditGroup != "" {
		auditor := startAuditConsumer(ctx, cfg.Broker, logger)
		defer auditor.Close()
	}

	hub := sse.NewHub()
	var mailer notification.Mailer
	if cfg.Email.Enabled {
		mailer = notification.NewSMTPMailer(cfg.Email)
		logger.Info("NOTIFY", fmt.Sprintf("E-mail delivery through %s:%d", cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	}
	dispatcher := notification.NewDispatcher(st, mailer, hub, notification.Options{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
	}, logger)
	dispatcher.Start(ctx)

	grid := seats.Grid{Rows: cfg.Booking.SeatRows, Columns: cfg.Booking.SeatColumns}
	loyaltyEngine := loyalty.NewEngine(logger)
	bookingService := booking.NewService(
		st,
		seats.NewLedger(grid, seatCache, logger),
		pricing.NewEngine(logger),
		loyaltyEngine,
		dispatcher,
		publisher,
		booking.Policy{
			HoldWindow:   cfg.Booking.HoldWindow,
			CancelWindow: cfg.Booking.CancelWindow,
			ReminderLead: cfg.Booking.ReminderLead,
		},
		logger,
	)

	scheduler := booking.NewScheduler(bookingService, logger)
	if err := scheduler.Start(ctx, cfg.Booking.ExpirySchedule, cfg.Booking.ReminderSchedule); err != nil {
		logger.Fatal("SCHEDULER", err.Error())
	}

	ticketService := tickets.NewTicketService(st, qr.NewQRGenerator(cfg.Tickets.QRSecret), logger)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	var verifier auth.TokenVerifier = jwtManager
	if cfg.Auth.OIDCIssuer != "" {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer)
		if err != nil {
			logger.Fatal("AUTH", err.Error())
		}
		verifier = auth.ChainVerifier{jwtManager, oidcVerifier}
		logger.Info("AUTH", fmt.Sprintf("Accepting OIDC tokens from %s", cfg.Auth.OIDCIssuer))
	}

	logger.Info("HTTP", "Setting up router and middleware")
	router := server.NewRouter(server.Deps{
		Logger:        logger,
		Verifier:      verifier,
		Users:         st.Repo(),
		Revocations:   revocations,
		Login:         auth.NewLoginService(st.Repo(), jwtManager, revoked, logger),
		Bookings:      booking_api.NewHandler(bookingService, logger),
		Loyalty:       loyalty_api.NewHandler(st, loyaltyEngine, logger),
		Notifications: notification_api.NewHandler(st, hub, logger),
		Tickets:       ticket_api.NewHandler(ticketService, logger),
		Reports:       analytics_api.NewHandler(analytics.NewService(st, logger), logger),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// WriteTimeout stays unset: the notification stream is long-lived.
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop producers before draining the notification queue.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	scheduler.Stop()
	dispatcher.Stop()
	cancel()
	logger.Info("APP", "Booking Service shutdown complete")
}

// startAuditConsumer logs every booking event read back from the topic. It
// runs until ctx is cancelled.
func startAuditConsumer(ctx context.Context, cfg config.BrokerConfig, log *logger.Logger) io.Closer {
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.BookingsTopic, cfg.AuditGroup, log)
	go func() {
		err := consumer.Run(ctx, func(ev models.BookingEvent) {
			log.LogKafka("AUDIT", cfg.BookingsTopic, fmt.Sprintf("%s %s user=%d show=%d", ev.Type, ev.BookingNumber, ev.UserID, ev.ShowID))
		})
		if err != nil {
			log.Error("KAFKA", fmt.Sprintf("Audit consumer stopped: %v", err))
		}
	}()
	log.Info("KAFKA", fmt.Sprintf("Audit consumer started in group %s", cfg.AuditGroup))
	return consumer
}

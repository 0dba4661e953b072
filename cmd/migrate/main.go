// Command migrate applies the SQL migrations, seeds the tier benefit table
// and, on request, creates demo accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
	"ms-booking/internal/loyalty"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"
	"ms-booking/internal/store"
)

type demoAccount struct {
	email    string
	fullName string
	role     models.Role
}

var demoAccounts = []demoAccount{
	{"admin@cinema.local", "Cinema Admin", models.RoleAdmin},
	{"usher@cinema.local", "Door Staff", models.RoleSalesman},
	{"alice@example.com", "Alice Wonderland", models.RoleCustomer},
	{"bob@example.com", "Bob Builder", models.RoleCustomer},
}

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	to := flag.Uint("to", 0, "migrate to this version instead of the latest")
	seed := flag.Bool("seed", false, "apply demo catalog migrations and create demo accounts")
	password := flag.String("demo-password", "changeme", "password of the demo accounts")
	flag.Parse()

	logger := logger.NewLogger("migrate")
	defer logger.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	sqldb, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	runner := migrations.NewRunner(sqldb, migrations.MigrateOptions{
		MigrationsDir: cfg.Database.MigrationsDir,
		SeedData:      *seed,
	}, logger)
	defer runner.Close()

	switch {
	case *down:
		logger.Info("MIGRATE", "Rolling back all migrations")
		err = runner.MigrateDown()
	case *to > 0:
		logger.Info("MIGRATE", fmt.Sprintf("Migrating to version %d", *to))
		err = runner.MigrateTo(*to)
	default:
		err = runner.RunMigrations()
	}
	if err != nil {
		logger.Fatal("MIGRATE", err.Error())
	}
	if *down {
		logger.Info("MIGRATE", "Done")
		return
	}

	bunDB, err := database.OpenBun(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	st := store.New(bunDB, logger)

	err = st.RunInTx(ctx, func(ctx context.Context, r *store.Repo) error {
		return loyalty.SeedTierBenefits(ctx, r)
	})
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to seed tier benefits: %v", err))
	}
	benefits, err := st.Repo().ListTierBenefits(ctx)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	for _, b := range benefits {
		logger.Debug("MIGRATE", fmt.Sprintf("Tier %s: %s%% off, %d free tickets/month, x%s points",
			b.Tier, b.BookingDiscount, b.MonthlyFreeTickets, b.PointsMultiplier))
	}
	logger.Info("MIGRATE", fmt.Sprintf("Tier benefits seeded (%d tiers)", len(benefits)))

	if *seed {
		if err := seedAccounts(ctx, st.Repo(), *password, logger); err != nil {
			logger.Fatal("DATABASE", err.Error())
		}
		if err := seedWelcomeCoupon(ctx, st.Repo(), logger); err != nil {
			logger.Fatal("DATABASE", err.Error())
		}
	}
	logger.Info("MIGRATE", "Done")
}

func seedAccounts(ctx context.Context, r *store.Repo, password string, log *logger.Logger) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	for _, a := range demoAccounts {
		u := &models.User{Email: a.email, FullName: a.fullName, Role: a.role, PasswordHash: hash}
		err := r.CreateUser(ctx, u)
		if store.IsUniqueViolation(err) {
			log.Debug("MIGRATE", fmt.Sprintf("Demo account %s already exists", a.email))
			continue
		}
		if err != nil {
			return fmt.Errorf("create demo account %s: %w", a.email, err)
		}
		log.Info("MIGRATE", fmt.Sprintf("Created demo account %s (%s)", a.email, a.role))
	}
	return nil
}

// seedWelcomeCoupon creates a 10% demo coupon under a freshly generated code,
// valid for thirty days and once per user.
func seedWelcomeCoupon(ctx context.Context, r *store.Repo, log *logger.Logger) error {
	for attempt := 0; attempt < 3; attempt++ {
		code, err := pricing.GenerateCode("WELCOME", 6)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		c := &models.Coupon{
			Code:           code,
			Description:    "Demo welcome discount",
			Type:           models.CouponPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			Applicability:  models.ApplicableAll,
			ValidFrom:      now,
			ValidTo:        now.AddDate(0, 0, 30),
			IsActive:       true,
			MaxUsesPerUser: 1,
		}
		err = r.CreateCoupon(ctx, c, nil)
		if store.IsUniqueViolation(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create welcome coupon: %w", err)
		}
		log.Info("MIGRATE", fmt.Sprintf("Created demo coupon %s", c.Code))
		return nil
	}
	return fmt.Errorf("create welcome coupon: no free code after 3 attempts")
}

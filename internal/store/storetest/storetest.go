// Package storetest opens throwaway in-memory stores for package tests.
package storetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

// New returns a store over a fresh in-memory SQLite database with the full schema.
// The pool is pinned to one connection so every query sees the same database.
func New(t *testing.T) *store.Store {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	s := store.New(bunDB, logger.NewNop())
	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

// Fixtures creates catalog rows with sensible defaults.
type Fixtures struct {
	T     *testing.T
	Store *store.Store
}

func (f Fixtures) User(email string, role models.Role) *models.User {
	f.T.Helper()
	u := &models.User{Email: email, FullName: email, Role: role}
	require.NoError(f.T, f.Store.Repo().CreateUser(context.Background(), u))
	return u
}

// Show creates a movie, a theater and an active show starting at start.
func (f Fixtures) Show(price string, totalSeats, available int, start time.Time) *models.Show {
	f.T.Helper()
	ctx := context.Background()
	repo := f.Store.Repo()

	movie := &models.Movie{Title: "Feature", DurationMinutes: 120}
	require.NoError(f.T, repo.CreateMovie(ctx, movie))
	theater := &models.Theater{Name: "Hall", City: "Metro"}
	require.NoError(f.T, repo.CreateTheater(ctx, theater))

	show := &models.Show{
		MovieID:        movie.ID,
		TheaterID:      theater.ID,
		StartTime:      start.UTC(),
		EndTime:        start.Add(2 * time.Hour).UTC(),
		Price:          decimal.RequireFromString(price),
		TotalSeats:     totalSeats,
		AvailableSeats: available,
		SeatRows:       10,
		SeatColumns:    10,
		IsActive:       true,
	}
	require.NoError(f.T, repo.CreateShow(ctx, show))
	return show
}

func (f Fixtures) Coupon(c *models.Coupon, targets ...models.CouponTarget) *models.Coupon {
	f.T.Helper()
	if c.ValidFrom.IsZero() {
		c.ValidFrom = time.Now().Add(-24 * time.Hour).UTC()
	}
	if c.ValidTo.IsZero() {
		c.ValidTo = time.Now().Add(24 * time.Hour).UTC()
	}
	c.IsActive = true
	require.NoError(f.T, f.Store.Repo().CreateCoupon(context.Background(), c, targets))
	return c
}

func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func MoneyPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

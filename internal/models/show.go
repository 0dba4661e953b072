package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Movie struct {
	bun.BaseModel `bun:"table:movies"`

	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	Title           string `bun:"title,notnull" json:"title"`
	DurationMinutes int    `bun:"duration_minutes" json:"duration_minutes"`
}

type Theater struct {
	bun.BaseModel `bun:"table:theaters"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
	City string `bun:"city" json:"city"`
}

// Show is a scheduled screening. AvailableSeats is only moved by the booking coordinator.
type Show struct {
	bun.BaseModel `bun:"table:shows"`

	ID             int64           `bun:"id,pk,autoincrement" json:"id"`
	MovieID        int64           `bun:"movie_id,notnull" json:"movie_id"`
	TheaterID      int64           `bun:"theater_id,notnull" json:"theater_id"`
	StartTime      time.Time       `bun:"start_time,notnull" json:"start_time"`
	EndTime        time.Time       `bun:"end_time,notnull" json:"end_time"`
	Price          decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	TotalSeats     int             `bun:"total_seats,notnull" json:"total_seats"`
	AvailableSeats int             `bun:"available_seats,notnull" json:"available_seats"`
	SeatRows       int             `bun:"seat_rows" json:"seat_rows"`
	SeatColumns    int             `bun:"seat_columns" json:"seat_columns"`
	IsActive       bool            `bun:"is_active,notnull" json:"is_active"`

	Movie   *Movie   `bun:"rel:belongs-to,join:movie_id=id" json:"movie,omitempty"`
	Theater *Theater `bun:"rel:belongs-to,join:theater_id=id" json:"theater,omitempty"`
}

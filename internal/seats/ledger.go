// Package seats answers "is seat X free on show S".
package seats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var (
	ErrSeatConflict     = errors.New("seat already taken")
	ErrDuplicateSeat    = errors.New("duplicate seat in request")
	ErrInvalidSeat      = errors.New("seat not in show layout")
	ErrCapacityExceeded = errors.New("not enough seats available")
)

// SeatConflictError lists the requested seats that another booking already holds.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatConflict, strings.Join(e.Seats, ","))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// OccupancyReader is the slice of the store the ledger needs.
type OccupancyReader interface {
	OccupiedSeats(ctx context.Context, showID int64) ([]string, error)
}

type SeatMap struct {
	ShowID         int64    `json:"show_id"`
	TotalSeats     int      `json:"total_seats"`
	AvailableSeats int      `json:"available_seats"`
	Available      []string `json:"available"`
	Booked         []string `json:"booked"`
}

// Cache is a read-through store for seat maps. Get returns ErrCacheMiss when
// absent, along with a generation token. Set must drop the write when an
// Invalidate has happened since that token was read.
type Cache interface {
	Get(ctx context.Context, showID int64) (*SeatMap, uint64, error)
	Set(ctx context.Context, m *SeatMap, gen uint64) error
	Invalidate(ctx context.Context, showIDs ...int64) error
}

type Ledger struct {
	grid   Grid
	cache  Cache
	logger *logger.Logger
}

// NewLedger builds a ledger. defaultGrid is used for shows without their own layout; cache may be nil.
func NewLedger(defaultGrid Grid, cache Cache, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNop()
	}
	return &Ledger{grid: defaultGrid, cache: cache, logger: log}
}

// GridFor returns the show's own layout, falling back to the ledger default.
func (l *Ledger) GridFor(show *models.Show) Grid {
	if show.SeatRows > 0 && show.SeatColumns > 0 {
		return Grid{Rows: show.SeatRows, Columns: show.SeatColumns}
	}
	return l.grid
}

// AvailableSeatsFor returns the seat map of a show. Reads go through the cache when one is set.
func (l *Ledger) AvailableSeatsFor(ctx context.Context, r OccupancyReader, show *models.Show) (*SeatMap, error) {
	var gen uint64
	cacheable := false
	if l.cache != nil {
		m, g, err := l.cache.Get(ctx, show.ID)
		if err == nil {
			return m, nil
		}
		if errors.Is(err, ErrCacheMiss) {
			gen, cacheable = g, true
		} else {
			l.logger.Warn("SEATS", fmt.Sprintf("Seat cache read failed for show %d: %v", show.ID, err))
		}
	}

	occupied, err := r.OccupiedSeats(ctx, show.ID)
	if err != nil {
		return nil, fmt.Errorf("load occupied seats: %w", err)
	}

	taken := make(map[string]bool, len(occupied))
	for _, s := range occupied {
		taken[s] = true
	}

	m := &SeatMap{
		ShowID:         show.ID,
		TotalSeats:     show.TotalSeats,
		AvailableSeats: show.AvailableSeats,
		Available:      []string{},
		Booked:         SortSeats(occupied),
	}
	for _, label := range l.GridFor(show).Labels() {
		if !taken[label] {
			m.Available = append(m.Available, label)
		}
	}

	if cacheable {
		if err := l.cache.Set(ctx, m, gen); err != nil {
			l.logger.Warn("SEATS", fmt.Sprintf("Seat cache write failed for show %d: %v", show.ID, err))
		}
	}
	return m, nil
}

// ValidateHold checks a seat request against a show the caller has locked.
// It always reads occupancy from the store, never from the cache, and returns
// the normalized seat labels on success.
func (l *Ledger) ValidateHold(ctx context.Context, r OccupancyReader, show *models.Show, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeat)
	}

	grid := l.GridFor(show)
	seen := make(map[string]bool, len(requested))
	seats := make([]string, 0, len(requested))
	var duplicates, invalid []string

	for _, raw := range requested {
		seat := NormalizeSeat(raw)
		if seen[seat] {
			duplicates = append(duplicates, seat)
			continue
		}
		seen[seat] = true
		if !grid.Contains(seat) {
			invalid = append(invalid, seat)
		}
		seats = append(seats, seat)
	}

	if len(duplicates) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSeat, strings.Join(duplicates, ","))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeat, strings.Join(invalid, ","))
	}

	occupied, err := r.OccupiedSeats(ctx, show.ID)
	if err != nil {
		return nil, fmt.Errorf("load occupied seats: %w", err)
	}
	var conflicts []string
	for _, s := range occupied {
		if seen[s] {
			conflicts = append(conflicts, s)
		}
	}
	if len(conflicts) > 0 {
		return nil, &SeatConflictError{Seats: SortSeats(conflicts)}
	}

	if len(seats) > show.AvailableSeats {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrCapacityExceeded, len(seats), show.AvailableSeats)
	}
	return seats, nil
}

// Invalidate drops cached seat maps. Called after a commit that moved inventory.
func (l *Ledger) Invalidate(ctx context.Context, showIDs ...int64) {
	if l.cache == nil || len(showIDs) == 0 {
		return
	}
	if err := l.cache.Invalidate(ctx, showIDs...); err != nil {
		l.logger.Warn("SEATS", fmt.Sprintf("Seat cache invalidation failed for shows %v: %v", showIDs, err))
	}
}

func NormalizeSeat(seat string) string {
	return strings.ToUpper(strings.TrimSpace(seat))
}

// SortSeats orders labels row first, then numerically by column (A2 before A10).
func SortSeats(seats []string) []string {
	out := append([]string(nil), seats...)
	sort.Slice(out, func(i, j int) bool {
		ri, ci, okI := splitSeat(out[i])
		rj, cj, okJ := splitSeat(out[j])
		if !okI || !okJ || ri != rj {
			return out[i] < out[j]
		}
		return ci < cj
	})
	return out
}

func splitSeat(seat string) (string, int, bool) {
	i := strings.IndexFunc(seat, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return "", 0, false
	}
	col, err := strconv.Atoi(seat[i:])
	if err != nil {
		return "", 0, false
	}
	return seat[:i], col, true
}

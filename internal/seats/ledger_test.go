package seats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
)

type fakeOccupancy struct {
	seats []string
	calls int
}

func (f *fakeOccupancy) OccupiedSeats(ctx context.Context, showID int64) ([]string, error) {
	f.calls++
	return f.seats, nil
}

func testShow(available int) *models.Show {
	return &models.Show{ID: 1, TotalSeats: 100, AvailableSeats: available, SeatRows: 10, SeatColumns: 10, IsActive: true}
}

func TestGrid_Labels(t *testing.T) {
	g := Grid{Rows: 2, Columns: 3}
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3"}, g.Labels())
	assert.True(t, g.Contains("B3"))
	assert.False(t, g.Contains("C1"))
	assert.False(t, g.Contains("A4"))
	assert.False(t, g.Contains("A01"))
	assert.False(t, g.Contains("7"))
}

func TestValidateHold_Conflict(t *testing.T) {
	l := NewLedger(DefaultGrid, nil, nil)
	occ := &fakeOccupancy{seats: []string{"A1", "A2"}}

	_, err := l.ValidateHold(context.Background(), occ, testShow(98), []string{"a2", "A3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSeatConflict)

	var conflict *SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"A2"}, conflict.Seats)
}

func TestValidateHold_Duplicates(t *testing.T) {
	l := NewLedger(DefaultGrid, nil, nil)

	_, err := l.ValidateHold(context.Background(), &fakeOccupancy{}, testShow(10), []string{"A1", " a1 "})
	assert.ErrorIs(t, err, ErrDuplicateSeat)
}

func TestValidateHold_InvalidSeat(t *testing.T) {
	l := NewLedger(DefaultGrid, nil, nil)

	_, err := l.ValidateHold(context.Background(), &fakeOccupancy{}, testShow(10), []string{"K1"})
	assert.ErrorIs(t, err, ErrInvalidSeat)

	_, err = l.ValidateHold(context.Background(), &fakeOccupancy{}, testShow(10), nil)
	assert.ErrorIs(t, err, ErrInvalidSeat)
}

func TestValidateHold_Capacity(t *testing.T) {
	l := NewLedger(DefaultGrid, nil, nil)

	_, err := l.ValidateHold(context.Background(), &fakeOccupancy{}, testShow(1), []string{"A1", "A2"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestValidateHold_Normalizes(t *testing.T) {
	l := NewLedger(DefaultGrid, nil, nil)

	seats, err := l.ValidateHold(context.Background(), &fakeOccupancy{seats: []string{"B1"}}, testShow(5), []string{"a1", "c10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "C10"}, seats)
}

func TestAvailableSeatsFor(t *testing.T) {
	l := NewLedger(Grid{Rows: 1, Columns: 4}, nil, nil)
	show := &models.Show{ID: 3, TotalSeats: 4, AvailableSeats: 2}

	m, err := l.AvailableSeatsFor(context.Background(), &fakeOccupancy{seats: []string{"A3", "A1"}}, show)
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A4"}, m.Available)
	assert.Equal(t, []string{"A1", "A3"}, m.Booked)
	assert.Equal(t, 2, m.AvailableSeats)
	assert.Equal(t, 4, m.TotalSeats)
}

func TestSortSeats(t *testing.T) {
	assert.Equal(t, []string{"A2", "A10", "B1"}, SortSeats([]string{"B1", "A10", "A2"}))
}

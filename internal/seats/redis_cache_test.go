package seats

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
)

// setupTestRedis starts a miniredis server and a client connected to it.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestRedisCache_SetGetInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	ctx := context.Background()
	cache := NewRedisCache(client, time.Minute)

	_, gen, err := cache.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, gen)

	m := &SeatMap{ShowID: 9, TotalSeats: 4, AvailableSeats: 3, Available: []string{"A2", "A3", "A4"}, Booked: []string{"A1"}}
	require.NoError(t, cache.Set(ctx, m, gen))
	assert.True(t, mr.Exists("seatmap:9"))

	got, _, err := cache.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	require.NoError(t, cache.Invalidate(ctx, 9))
	_, gen, err = cache.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, uint64(1), gen)
}

func TestRedisCache_SetAfterInvalidateIsSkipped(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	ctx := context.Background()
	cache := NewRedisCache(client, time.Minute)

	_, gen, err := cache.Get(ctx, 3)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Invalidate(ctx, 3))
	require.NoError(t, cache.Set(ctx, &SeatMap{ShowID: 3, Available: []string{"A1"}}, gen))

	assert.False(t, mr.Exists("seatmap:3"))
	_, _, err = cache.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	ctx := context.Background()
	cache := NewRedisCache(client, 30*time.Second)
	require.NoError(t, cache.Set(ctx, &SeatMap{ShowID: 1}, 0))

	mr.FastForward(31 * time.Second)

	_, _, err := cache.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLedger_ReadsThroughCache(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	ctx := context.Background()
	l := NewLedger(Grid{Rows: 1, Columns: 3}, NewRedisCache(client, time.Minute), nil)
	occ := &fakeOccupancy{seats: []string{"A1"}}
	show := &models.Show{ID: 5, TotalSeats: 3, AvailableSeats: 2}

	first, err := l.AvailableSeatsFor(ctx, occ, show)
	require.NoError(t, err)
	second, err := l.AvailableSeatsFor(ctx, occ, show)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, occ.calls)

	// Holds never trust the cache.
	occ.seats = []string{"A1", "A2"}
	_, err = l.ValidateHold(ctx, occ, show, []string{"A2"})
	assert.ErrorIs(t, err, ErrSeatConflict)

	l.Invalidate(ctx, 5)
	third, err := l.AvailableSeatsFor(ctx, occ, show)
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, third.Available)
}

// invalidatingOccupancy simulates a booking committing while the seat map is
// being loaded: the read returns the old occupancy and the invalidation lands
// before the loader writes the cache.
type invalidatingOccupancy struct {
	ledger *Ledger
	seats  []string
	once   bool
}

func (o *invalidatingOccupancy) OccupiedSeats(ctx context.Context, showID int64) ([]string, error) {
	seats := o.seats
	if !o.once {
		o.once = true
		o.seats = []string{"A1", "A2"}
		o.ledger.Invalidate(ctx, showID)
	}
	return seats, nil
}

func TestLedger_StaleLoadNotCachedAfterInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	ctx := context.Background()
	l := NewLedger(Grid{Rows: 1, Columns: 3}, NewRedisCache(client, time.Minute), nil)
	occ := &invalidatingOccupancy{ledger: l, seats: []string{"A1"}}
	show := &models.Show{ID: 7, TotalSeats: 3, AvailableSeats: 2}

	stale, err := l.AvailableSeatsFor(ctx, occ, show)
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A3"}, stale.Available)
	assert.False(t, mr.Exists("seatmap:7"))

	fresh, err := l.AvailableSeatsFor(ctx, occ, show)
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, fresh.Available)
}

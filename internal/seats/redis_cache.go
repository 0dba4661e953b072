package seats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("seat map not cached")

// RedisCache keeps serialized seat maps under seatmap:<show id> with a short TTL.
// It is a read cache only; holds are always validated against the database.
//
// Every show also has a generation counter under seatmap:<show id>:gen.
// Invalidate bumps it, and Set only writes when the counter still matches the
// value seen on the miss, so a map loaded before a commit can never be stored
// after that commit's invalidation.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{Client: client, TTL: ttl}
}

func seatMapKey(showID int64) string {
	return fmt.Sprintf("seatmap:%d", showID)
}

func generationKey(showID int64) string {
	return fmt.Sprintf("seatmap:%d:gen", showID)
}

// Get returns the cached map, or ErrCacheMiss together with the generation
// the caller must hand back to Set.
func (c *RedisCache) Get(ctx context.Context, showID int64) (*SeatMap, uint64, error) {
	vals, err := c.Client.MGet(ctx, seatMapKey(showID), generationKey(showID)).Result()
	if err != nil {
		return nil, 0, err
	}

	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, ErrCacheMiss
	}

	var m SeatMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, gen, fmt.Errorf("decode seat map: %w", err)
	}
	return &m, gen, nil
}

// Set stores m if the show's generation is still gen. A stale write is
// skipped without error.
func (c *RedisCache) Set(ctx context.Context, m *SeatMap, gen uint64) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode seat map: %w", err)
	}

	genKey := generationKey(m.ShowID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err == redis.Nil {
			current, err = "", nil
		}
		if err != nil {
			return err
		}
		now, err := parseGeneration(current)
		if err != nil {
			return err
		}
		if now != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, seatMapKey(m.ShowID), raw, c.TTL)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, showIDs ...int64) error {
	if len(showIDs) == 0 {
		return nil
	}
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range showIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Del(ctx, seatMapKey(id))
		}
		return nil
	})
	return err
}

func parseGeneration(v interface{}) (uint64, error) {
	s, _ := v.(string)
	if s == "" {
		return 0, nil
	}
	gen, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode seat map generation: %w", err)
	}
	return gen, nil
}

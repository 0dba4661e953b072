package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-booking/internal/logger"
)

// InitializeRedis connects to Redis and checks the connection with a ping and a test write.
// The client is shared by the token revocation list and the seat-map cache.
func InitializeRedis(redisAddr string, log *logger.Logger) (*redis.Client, error) {
	if log == nil {
		log = logger.NewNop()
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
		redisClient.Close()
		return nil, err
	}

	testKey := revokedKeyPrefix + "test"
	if err := redisClient.Set(ctx, testKey, "test", 5*time.Second).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		redisClient.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s", redisAddr))
	return redisClient, nil
}

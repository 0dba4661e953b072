package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	revokedKeyPrefix = "revoked_token:"
	// revocationBuffer keeps an entry a little past token expiry to absorb clock skew.
	revocationBuffer = 60 * time.Second
)

// RevocationList remembers logged-out token ids until the tokens would have expired anyway.
type RevocationList struct {
	Client *redis.Client
}

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{Client: client}
}

func (l *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if l.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt) + revocationBuffer
	if ttl <= revocationBuffer {
		ttl = revocationBuffer
	}
	if err := l.Client.Set(ctx, revokedKeyPrefix+tokenID, expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if l.Client == nil || tokenID == "" {
		return false, nil
	}
	n, err := l.Client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}

package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	blacklistMu     sync.RWMutex
	blacklistClient *redis.Client
)

// SetBlacklistClient configures the Redis client used for access-token revocation.
// Passing nil disables revocation checks.
func SetBlacklistClient(c *redis.Client) {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	blacklistClient = c
}

func currentBlacklistClient() *redis.Client {
	blacklistMu.RLock()
	defer blacklistMu.RUnlock()
	return blacklistClient
}

// Keys hold a digest of the token so raw bearer tokens never land in Redis.
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "workouts:blacklist:" + hex.EncodeToString(sum[:])
}

// BlacklistAccessToken revokes the token for ttl. No-op without a Redis client.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	c := currentBlacklistClient()
	if c == nil || ttl <= 0 {
		return nil
	}
	return c.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsAccessTokenBlacklisted returns (false, nil) when no Redis client is configured.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	c := currentBlacklistClient()
	if c == nil {
		return false, nil
	}
	n, err := c.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BlacklistEnabled reports whether revocations are persisted.
func BlacklistEnabled() bool {
	return currentBlacklistClient() != nil
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache mirrors revoked tokens in Redis so repeated use of a
// revoked token does not reach Postgres. A miss says nothing; the
// database stays authoritative.
type RevocationCache struct {
	client *redis.Client
}

func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// getRevokedKey generates the Redis key for a revoked token marker
func getRevokedKey(token string) string {
	return fmt.Sprintf("revoked_token:%s", hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add marks token as revoked until ttl elapses.
func (c *RevocationCache) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, getRevokedKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports a cache hit for token.
func (c *RevocationCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := c.client.Get(ctx, getRevokedKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return true, nil
}

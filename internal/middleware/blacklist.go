package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenBlacklist revokes JWTs ahead of their natural expiry. Only a
// digest of the token is stored, so a Redis dump never contains a usable
// bearer token.
type RedisTokenBlacklist struct {
	client *redis.Client
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func revokedKey(token string) string {
	digest := sha256.Sum256([]byte(token))
	return "auth:revoked:" + hex.EncodeToString(digest[:])
}

// Blacklist revokes the token for the given duration, which should cover
// the token's remaining lifetime; after that the JWT is expired anyway and
// the key can lapse.
func (b *RedisTokenBlacklist) Blacklist(ctx context.Context, token string, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = time.Minute
	}
	revokedAt := time.Now().UTC().Format(time.RFC3339)
	return b.client.Set(ctx, revokedKey(token), revokedAt, expiration).Err()
}

// IsBlacklisted reports whether the token has been revoked.
func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

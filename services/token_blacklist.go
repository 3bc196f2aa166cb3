package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisTokenBlacklist struct {
	Client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{Client: client}
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:access:%s", token)
}

// Blacklist keeps token revoked until expiresAt. Tokens already past expiry are ignored.
func (tb *RedisTokenBlacklist) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := tb.Client.Set(ctx, blacklistKey(token), "true", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in Redis: %v", err)
	}
	return nil
}

func (tb *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := tb.Client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %v", err)
	}
	return n > 0, nil
}

// IsConnected checks if the Redis connection is alive
func (tb *RedisTokenBlacklist) IsConnected(ctx context.Context) bool {
	if tb == nil || tb.Client == nil {
		return false
	}
	return tb.Client.Ping(ctx).Err() == nil
}

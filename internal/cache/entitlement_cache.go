package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// EntitlementCache fronts the MySQL entitlement row so the chat gate does
// not hit the database on every request. Webhook writes invalidate entries.
type EntitlementCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEntitlementCache(client *redisv9.Client, ttl time.Duration) *EntitlementCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &EntitlementCache{client: client, ttl: ttl}
}

func (c *EntitlementCache) Get(ctx context.Context, userID uint) (bool, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redisv9.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get entitlement failed: %w", err)
	}
	return raw == "1", true, nil
}

func (c *EntitlementCache) Set(ctx context.Context, userID uint, active bool) error {
	value := "0"
	if active {
		value = "1"
	}
	if err := c.client.Set(ctx, c.key(userID), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set entitlement failed: %w", err)
	}
	return nil
}

func (c *EntitlementCache) Invalidate(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete entitlement failed: %w", err)
	}
	return nil
}

func (c *EntitlementCache) key(userID uint) string {
	return fmt.Sprintf("entitlement:%d", userID)
}

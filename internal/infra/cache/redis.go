package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCooldown implements domain.Cooldown on top of Redis SetNX.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown creates the store.
func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

// Reserve occupies the key for the window if it is free.
func (c *RedisCooldown) Reserve(key string, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.SetNX(ctx, "cooldown:"+key, "1", window).Result()
}

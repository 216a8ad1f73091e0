package replaycache

import (
	"context"
	"errors"
	"time"

	"vendtrustd/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
}

// NewRedisCache shares nonce state across replicas, so a replayed request
// is rejected no matter which instance it lands on.
func NewRedisCache(addr, password string, db int) (domain.ReplayCache, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisCache{client: client}, nil
}

func (r *redisCache) Remember(ctx context.Context, machineID, nonce string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	key := "replay:" + machineID + ":" + nonce
	return r.client.SetNX(ctx, key, 1, ttl).Result()
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuestBackend stores each guest cart as one string key with a sliding
// TTL, refreshed on every save.
type RedisGuestBackend struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuestBackend(client *redis.Client, ttl time.Duration) *RedisGuestBackend {
	return &RedisGuestBackend{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisGuestBackend) getKey(guestID string) string {
	return fmt.Sprintf("cart:guest:%s", guestID)
}

func (r *RedisGuestBackend) Get(ctx context.Context, guestID string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.getKey(guestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGuestCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisGuestBackend) Set(ctx context.Context, guestID string, data []byte) error {
	return r.client.Set(ctx, r.getKey(guestID), data, r.ttl).Err()
}

func (r *RedisGuestBackend) Delete(ctx context.Context, guestID string) error {
	return r.client.Del(ctx, r.getKey(guestID)).Err()
}

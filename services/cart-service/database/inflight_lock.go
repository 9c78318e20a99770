package database

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token, so a lock
// that expired and was taken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInFlightLocker marks a cart mutation as in flight across every
// service replica. The TTL bounds how long a crashed request can block its
// item.
type RedisInFlightLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisInFlightLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisInFlightLocker {
	return &RedisInFlightLocker{client: client, ttl: ttl, logger: logger}
}

// lockPollInterval is how often Lock retries a held key.
const lockPollInterval = 25 * time.Millisecond

func (l *RedisInFlightLocker) getKey(key string) string {
	return "inflight:cart:" + key
}

// Acquire returns ErrRequestInFlight when key is already held.
func (l *RedisInFlightLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.getKey(key), token, l.ttl).Result()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrServiceUnavailable, err)
	}
	if !ok {
		return nil, apperrors.ErrRequestInFlight
	}

	return func() {
		// The request context may already be cancelled when we release.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.getKey(key)}, token).Err(); err != nil {
			l.logger.Warn("in-flight lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// Lock waits until key is free, ctx is done, or one TTL has passed. The last
// case reports ErrRequestInFlight.
func (l *RedisInFlightLocker) Lock(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(l.ttl)
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		release, err := l.Acquire(ctx, key)
		if err == nil || !errors.Is(err, apperrors.ErrRequestInFlight) {
			return release, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

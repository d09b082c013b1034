package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrDeliveryInProgress = errors.New("checkout session is being processed by another delivery")

// DeliveryLocker serializes concurrent deliveries of the same session.
type DeliveryLocker interface {
	// Acquire returns ErrDeliveryInProgress when another holder owns the key.
	// Any other error means the lock backend is unavailable.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisDeliveryLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeliveryLocker(client *redis.Client, ttl time.Duration) *RedisDeliveryLocker {
	return &RedisDeliveryLocker{client: client, ttl: ttl}
}

func (l *RedisDeliveryLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := "lock:stripe-session:" + sessionID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeliveryInProgress
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

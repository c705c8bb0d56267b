package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

const pauseFlagKey = "engine:paused"

// RedisCircuitBreaker reads the shared pause flag set by operations tooling.
// Any value other than an absent key or "0" counts as paused; a flag that
// cannot be read blocks operations rather than letting them through.
type RedisCircuitBreaker struct {
	client *redis.Client
}

func NewRedisCircuitBreaker(client *redis.Client) *RedisCircuitBreaker {
	return &RedisCircuitBreaker{client: client}
}

func (b *RedisCircuitBreaker) IsPaused(ctx context.Context) (bool, error) {
	value, err := b.client.Get(ctx, pauseFlagKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read pause flag: %w", err)
	}
	return value != "0" && value != "", nil
}

// Pause sets the shared flag; Resume clears it.
func (b *RedisCircuitBreaker) Pause(ctx context.Context) error {
	return b.client.Set(ctx, pauseFlagKey, "1", 0).Err()
}

func (b *RedisCircuitBreaker) Resume(ctx context.Context) error {
	return b.client.Del(ctx, pauseFlagKey).Err()
}

// StaticCircuitBreaker is the in-process flag used in tests and the
// no-redis development mode.
type StaticCircuitBreaker struct {
	paused atomic.Bool
}

func NewStaticCircuitBreaker() *StaticCircuitBreaker {
	return &StaticCircuitBreaker{}
}

func (b *StaticCircuitBreaker) IsPaused(_ context.Context) (bool, error) {
	return b.paused.Load(), nil
}

func (b *StaticCircuitBreaker) SetPaused(paused bool) {
	b.paused.Store(paused)
}

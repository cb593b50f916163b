package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"microposts/domain"
)

// Config configures the redis count cache. An empty Address disables it.
type Config struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a redis address has been configured.
func (c Config) Enabled() bool {
	return c.Address != ""
}

// RedisCounter caches relationship counts in redis.
// It implements the domain.CountCache interface.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCounter connects to redis and returns a RedisCounter.
// Counts written by Set expire after ttl; a ttl of 0 keeps them forever.
func NewRedisCounter(cfg Config) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCounter{client: client, ttl: cfg.TTL}, nil
}

var _ domain.CountCache = (*RedisCounter)(nil)

// Get returns the cached count stored under key.
// Returns (count, true, nil) on hit, (0, false, nil) on miss.
func (c *RedisCounter) Get(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get count: %w", err)
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse count: %w", err)
	}
	return n, true, nil
}

// Set stores n under key.
func (c *RedisCounter) Set(ctx context.Context, key string, n int64) error {
	if err := c.client.Set(ctx, key, n, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set count: %w", err)
	}
	return nil
}

// condIncrScript increments the key only if it exists.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript decrements the key only if it exists and is above 0.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

// CondIncr increments the count under key if it is cached.
// A missing key stays missing so the next read recomputes it from the database.
func (c *RedisCounter) CondIncr(ctx context.Context, key string) error {
	err := condIncrScript.Run(ctx, c.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr count: %w", err)
	}
	return nil
}

// CondDecr decrements the count under key if it is cached and positive.
func (c *RedisCounter) CondDecr(ctx context.Context, key string) error {
	err := condDecrScript.Run(ctx, c.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr count: %w", err)
	}
	return nil
}

// Delete drops the given keys.
func (c *RedisCounter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete counts: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration
	DialTimeout time.Duration
}

// RedisCartStorage stores serialized carts as Redis strings so that
// several server instances share session carts.
type RedisCartStorage struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCartStorage connects to Redis and verifies the connection
func NewRedisCartStorage(ctx context.Context, cfg RedisConfig) (*RedisCartStorage, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCartStorageWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisCartStorageWithClient wraps an existing client without pinging it
func NewRedisCartStorageWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCartStorage {
	return &RedisCartStorage{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get implements cart.Storage
func (s *RedisCartStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements cart.Storage. The TTL restarts on every write.
func (s *RedisCartStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements cart.Storage
func (s *RedisCartStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisCartStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisCartStorage) Close() error {
	return s.client.Close()
}

// Key returns the Redis key used for a cart key
func (s *RedisCartStorage) Key(key string) string {
	return s.keyPrefix + key
}

var _ cart.Storage = (*RedisCartStorage)(nil)

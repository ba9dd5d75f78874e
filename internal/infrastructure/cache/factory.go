package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"go.uber.org/zap"
)

// CartStorage is a cart.Storage the server can health-check and close
type CartStorage interface {
	cart.Storage
	io.Closer
	Ping(ctx context.Context) error
}

// StorageFactory creates key/value cart storages
type StorageFactory struct {
	redis                 RedisConfig
	ttl                   time.Duration
	sweepInterval         time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StorageFactoryOption is a functional option for configuring the factory
type StorageFactoryOption func(*StorageFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory
func WithInMemoryFallback(allow bool) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithSweepInterval sets how often the in-memory storage drops expired carts
func WithSweepInterval(d time.Duration) StorageFactoryOption {
	return func(f *StorageFactory) {
		f.sweepInterval = d
	}
}

// NewStorageFactory creates a factory. ttl applies to both drivers.
func NewStorageFactory(redisCfg RedisConfig, ttl time.Duration, opts ...StorageFactoryOption) *StorageFactory {
	redisCfg.TTL = ttl
	f := &StorageFactory{
		redis:         redisCfg,
		ttl:           ttl,
		sweepInterval: 10 * time.Minute,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryStorage creates an in-memory storage
func (f *StorageFactory) CreateInMemoryStorage() *InMemoryCartStorage {
	return NewInMemoryCartStorage(f.ttl, f.sweepInterval)
}

// CreateRedisStorage creates a Redis storage, falling back to memory when
// Redis is unreachable and fallback is allowed.
func (f *StorageFactory) CreateRedisStorage(ctx context.Context) (CartStorage, error) {
	store, err := NewRedisCartStorage(ctx, f.redis)
	if err == nil {
		f.logger.Info("using Redis cart storage", zap.String("addr", f.redis.Addr))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis cart storage unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cart storage. "+
		"Carts will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStorage(), nil
}

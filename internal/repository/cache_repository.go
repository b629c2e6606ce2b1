package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// ErrCorruptCacheEntry marks a cached payload that no longer decodes into the requested type.
var ErrCorruptCacheEntry = errors.New("corrupt cache entry")

// CacheRepository stores JSON payloads in Redis behind a circuit breaker. A nil client turns
// every read into a miss and every write into a no-op.
type CacheRepository struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, breaker: breaker, logger: logger}
}

func (r *CacheRepository) execute(fn func() (interface{}, error)) (interface{}, error) {
	if r.breaker == nil {
		return fn()
	}
	return r.breaker.Execute(fn)
}

// Get retrieves and unmarshals the cached value into dest. An open breaker reads as a miss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	out, err := r.execute(func() (interface{}, error) {
		raw, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return raw, err
	})
	if err != nil {
		if isBreakerOpen(err) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	raw, _ := out.([]byte)
	if raw == nil {
		return appErrors.ErrCacheMiss
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptCacheEntry, key, err)
	}
	return nil
}

// Set marshals the value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	_, err = r.execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, payload, ttl).Err()
	})
	if err != nil && !isBreakerOpen(err) {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single key.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	_, err := r.execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	if err != nil && !isBreakerOpen(err) {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/redis/go-redis/v9"
)

const (
	PropertyKeyPrefix = "property:%d"
	PropertyTTL       = 10 * time.Minute
)

func PropertyKey(id uint) string {
	return fmt.Sprintf(PropertyKeyPrefix, id)
}

// GetJSON loads key into dest. It reports false on a miss, a decode failure or when
// no client is configured.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		Invalidate(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key. Failures are logged and ignored.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// CacheAside returns the cached value for key, or calls load and caches its result.
// Load errors are returned as-is and nothing is cached.
func CacheAside[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	var cached T
	if GetJSON(ctx, key, &cached) {
		return &cached, nil
	}
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	SetJSON(ctx, key, v, ttl)
	return v, nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProperty(ctx context.Context, id uint) {
	Invalidate(ctx, PropertyKey(id))
}

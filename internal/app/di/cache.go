package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	priceusecase "crypto_backend/internal/feature/prices/usecase"
	"crypto_backend/internal/platform/cache"
)

// NewCache creates the TTL cache shared by the prices and risk features.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to an in-process map.
func NewCache(rdb *redis.Client) priceusecase.Cache {
	if rdb != nil {
		return cache.NewRedisCache(rdb, "cvara", time.Now)
	}
	return cache.NewMemoryCache(time.Now)
}

// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"crypto_backend/internal/platform/externalapi/coingecko"
	infrahttp "crypto_backend/internal/platform/http"
	"crypto_backend/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured CoinGeckoMarket with HTTP client,
// plus the rate limiter sized to the configured per-minute budget.
func NewMarket() (*coingecko.CoinGeckoMarket, *ratelimiter.RateLimiter) {
	cfg := coingecko.LoadConfig()
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	return coingecko.NewCoinGeckoMarket(cfg, httpClient), ratelimiter.NewRateLimiter(cfg.CallsPerMinute, time.Minute)
}

// Package coingecko provides a client for the CoinGecko public market API.
package coingecko

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultBaseURL        = "https://api.coingecko.com/api/v3"
	defaultVsCurrency     = "usd"
	defaultTimeout        = 10 * time.Second
	defaultCallsPerMinute = 25
)

// Config holds configuration for the CoinGecko API client.
type Config struct {
	APIKey         string        // demo API key, sent as x-cg-demo-api-key when set
	BaseURL        string        // e.g. "https://api.coingecko.com/api/v3"
	VsCurrency     string        // quote currency
	Timeout        time.Duration // per-request timeout
	CallsPerMinute int           // client-side pacing for batch jobs
}

// LoadConfig loads CoinGecko configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		APIKey:         os.Getenv("COINGECKO_API_KEY"),
		BaseURL:        os.Getenv("COINGECKO_BASE_URL"),
		VsCurrency:     defaultVsCurrency,
		Timeout:        defaultTimeout,
		CallsPerMinute: defaultCallsPerMinute,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if v := os.Getenv("COINGECKO_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("COINGECKO_CALLS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.CallsPerMinute = n
		}
	}
	return cfg
}

// Package config はアプリケーション全体の設定を環境変数から読み込みます。
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	coinusecase "crypto_backend/internal/feature/coins/usecase"
	priceusecase "crypto_backend/internal/feature/prices/usecase"
	riskusecase "crypto_backend/internal/feature/riskmetrics/usecase"
)

// Config はサーバーとCLIで共有する設定です。
type Config struct {
	Port          string
	ReferenceCoin string
	RiskFreeRate  float64
	RiskTTL       time.Duration
	MarketTTL     time.Duration
	HistoryTTL    time.Duration
}

// LoadDotEnv は .env があれば読み込みます。既に設定済みの環境変数は上書きしません。
func LoadDotEnv() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}
}

// Load は環境変数から設定を読み込みます。未設定や不正な値はデフォルト値になります。
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		ReferenceCoin: strings.ToLower(getEnv("REFERENCE_COIN", coinusecase.DefaultReferenceCoin)),
		RiskFreeRate:  getFloat("RISK_FREE_RATE", riskusecase.DefaultRiskFreeRate),
		RiskTTL:       getDuration("CACHE_TTL_RISK", riskusecase.DefaultRiskTTL),
		MarketTTL:     getDuration("CACHE_TTL_MARKET", priceusecase.DefaultMarketTTL),
		HistoryTTL:    getDuration("CACHE_TTL_HISTORY", priceusecase.DefaultHistoryTTL),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float in environment, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

// getDuration は "90s" のような期間表記と秒数の整数のどちらも受け付けます。
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
	return fallback
}

package di

import (
	"gorm.io/gorm"

	"crypto_backend/internal/app/config"
	coinadapters "crypto_backend/internal/feature/coins/adapters"
	coinhandler "crypto_backend/internal/feature/coins/transport/handler"
	coinusecase "crypto_backend/internal/feature/coins/usecase"
	priceadapters "crypto_backend/internal/feature/prices/adapters"
	pricehandler "crypto_backend/internal/feature/prices/transport/handler"
	priceusecase "crypto_backend/internal/feature/prices/usecase"
	riskadapters "crypto_backend/internal/feature/riskmetrics/adapters"
	riskhandler "crypto_backend/internal/feature/riskmetrics/transport/handler"
	riskusecase "crypto_backend/internal/feature/riskmetrics/usecase"
	"crypto_backend/internal/platform/db"
	platformhandler "crypto_backend/internal/platform/http/handler"
	"crypto_backend/internal/shared/ratelimiter"
)

// App holds the wired usecases and handlers shared by the server and the CLI.
type App struct {
	Coins []string

	History *priceusecase.HistoryUsecase
	Market  *priceusecase.MarketUsecase
	Risk    *riskusecase.RiskUsecase

	CoinHandler   *coinhandler.CoinHandler
	MarketHandler *pricehandler.MarketHandler
	RiskHandler   *riskhandler.RiskHandler
	HealthHandler *platformhandler.HealthHandler
}

// NewApp wires repositories, usecases and handlers around one write gate.
func NewApp(cfg config.Config, gdb *gorm.DB, market priceusecase.MarketRepository, limiter ratelimiter.RateLimiterInterface, cache priceusecase.Cache) *App {
	gate := db.NewWriteGate(gdb)
	coins := coinusecase.TrackedIDs()

	// Repository
	coinRepo := coinadapters.NewCoinRepository(gdb)
	priceRepo := priceadapters.NewPriceRepository(gate)
	snapshotRepo := riskadapters.NewSnapshotRepository(gate)

	// Usecase
	coinUC := coinusecase.NewCoinUsecase(coinRepo)
	historyUC := priceusecase.NewHistoryUsecase(market, priceRepo, limiter)
	marketUC := priceusecase.NewMarketUsecase(historyUC, market, priceRepo, cache,
		priceusecase.TTLs{Market: cfg.MarketTTL, History: cfg.HistoryTTL}, coins)
	engine := riskusecase.NewMetricsEngine(priceRepo, cfg.RiskFreeRate)
	riskUC := riskusecase.NewRiskUsecase(engine, snapshotRepo, cache, cfg.RiskTTL, coins, cfg.ReferenceCoin)

	// Health
	var store platformhandler.Pinger
	if sqlDB, err := gdb.DB(); err == nil {
		store = sqlDB
	}

	return &App{
		Coins:         coins,
		History:       historyUC,
		Market:        marketUC,
		Risk:          riskUC,
		CoinHandler:   coinhandler.NewCoinHandler(coinUC),
		MarketHandler: pricehandler.NewMarketHandler(marketUC),
		RiskHandler:   riskhandler.NewRiskHandler(riskUC),
		HealthHandler: platformhandler.NewHealthHandler(store),
	}
}

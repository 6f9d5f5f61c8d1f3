package di

import (
	"gorm.io/gorm"

	coinadapters "crypto_backend/internal/feature/coins/adapters"
	priceadapters "crypto_backend/internal/feature/prices/adapters"
	riskadapters "crypto_backend/internal/feature/riskmetrics/adapters"
	"crypto_backend/internal/platform/db"
)

// Models lists every table the store owns, in migration order.
func Models() []any {
	return []any{
		&coinadapters.CoinModel{},
		&priceadapters.PriceModel{},
		&priceadapters.MarketSnapshotModel{},
		&riskadapters.RiskSnapshotModel{},
	}
}

// OpenStore connects to the configured database and migrates all tables.
func OpenStore(cfg db.Config) (*gorm.DB, error) {
	return db.OpenDB(cfg, Models()...)
}

package router

import (
	"github.com/gin-gonic/gin"

	coinhandler "crypto_backend/internal/feature/coins/transport/handler"
	pricehandler "crypto_backend/internal/feature/prices/transport/handler"
	riskhandler "crypto_backend/internal/feature/riskmetrics/transport/handler"
	"crypto_backend/internal/platform/http/handler"
	"crypto_backend/internal/platform/metrics"
)

func NewRouter(health *handler.HealthHandler, coins *coinhandler.CoinHandler, market *pricehandler.MarketHandler,
	risk *riskhandler.RiskHandler, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.Default()
	// 起動時処理のトリガーなど
	r.Use(middleware...)

	// 導通確認用
	r.GET("/healthz", health.Health)
	r.HEAD("/healthz", health.Health)
	// Prometheus
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/coins", coins.List)
		api.GET("/crypto", market.GetMarkets)
		api.GET("/history", market.GetHistory)
		api.GET("/init-history", market.InitHistory)
		api.GET("/risk-metrics", risk.GetRiskMetrics)
		api.GET("/risk-metrics-latest", risk.GetLatest)
		api.GET("/risk-metrics-batch", risk.RunBatch)
	}

	return r
}

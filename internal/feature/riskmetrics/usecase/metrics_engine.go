// Package usecase はリスク指標の計算とスナップショット管理のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	coinusecase "crypto_backend/internal/feature/coins/usecase"
	priceentity "crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/riskmetrics/domain/entity"
	"crypto_backend/internal/feature/riskmetrics/domain/stats"
	"crypto_backend/internal/platform/metrics"
	"crypto_backend/internal/shared/numfmt"
)

const (
	// DefaultRiskFreeRate は年率の無リスク金利です。
	DefaultRiskFreeRate = 0.04

	annualizationDays = 365
	varPercentile     = 5
)

// PriceReader は保存済みの日次価格を読み出すインターフェースです。
type PriceReader interface {
	// FindRecent は直近 limit 件の価格を日付の昇順で返します。
	FindRecent(ctx context.Context, coin string, limit int) ([]priceentity.PricePoint, error)
}

// MetricsEngine は保存済みの価格からリスク指標を計算します。
type MetricsEngine struct {
	prices       PriceReader
	riskFreeRate float64
}

// NewMetricsEngine は新しい MetricsEngine を作成します。
func NewMetricsEngine(prices PriceReader, riskFreeRate float64) *MetricsEngine {
	return &MetricsEngine{prices: prices, riskFreeRate: riskFreeRate}
}

// ComputeRiskMetrics は各コインの直近 days 件の価格からボラティリティ・シャープレシオ・ベータ・VaRを計算します。
// 価格が2点未満のコインは結果に含めません。基準コインが2点未満の場合は ErrInsufficientReferenceData を返します。
func (e *MetricsEngine) ComputeRiskMetrics(ctx context.Context, coins []string, referenceCoin string, days int) ([]entity.CoinMetrics, error) {
	refPoints, err := e.prices.FindRecent(ctx, referenceCoin, days)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", referenceCoin, err)
	}
	if len(refPoints) < 2 {
		return nil, fmt.Errorf("%w: %s has %d prices in the last %d days; run /api/init-history first",
			ErrInsufficientReferenceData, referenceCoin, len(refPoints), days)
	}
	refReturns := returnsOf(refPoints)

	rows := make([]entity.CoinMetrics, 0, len(coins))
	for _, coin := range coins {
		var rs []stats.Return
		if coin == referenceCoin {
			rs = refReturns
		} else {
			pts, err := e.prices.FindRecent(ctx, coin, days)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", coin, err)
			}
			if len(pts) < 2 {
				slog.Debug("not enough prices, skipping", "coin", coin, "days", days, "points", len(pts))
				continue
			}
			rs = returnsOf(pts)
		}
		rows = append(rows, e.metricsFor(coin, rs, refReturns))
	}

	metrics.RiskComputations.WithLabelValues(strconv.Itoa(days)).Inc()
	return rows, nil
}

func (e *MetricsEngine) metricsFor(coin string, rs, ref []stats.Return) entity.CoinMetrics {
	values := stats.Values(rs)
	std := stats.SampleStdDev(values)
	annualStd := std * math.Sqrt(annualizationDays)

	volatility := annualStd * 100
	var sharpe float64
	if std != 0 {
		sharpe = (stats.Mean(values)*annualizationDays - e.riskFreeRate) / annualStd
	}
	beta := stats.Beta(rs, ref)
	valueAtRisk := math.Abs(stats.Percentile(values, varPercentile)) * 100

	return entity.CoinMetrics{
		Coin:       coin,
		Symbol:     coinusecase.SymbolFor(coin),
		Volatility: numfmt.Round2(volatility),
		Sharpe:     numfmt.Round2(sharpe),
		Beta:       numfmt.Round2(beta),
		VaR:        numfmt.Round2(valueAtRisk),
		Risk:       entity.ClassifyRisk(volatility),
	}
}

func returnsOf(points []priceentity.PricePoint) []stats.Return {
	dates := make([]string, len(points))
	prices := make([]float64, len(points))
	for i, p := range points {
		dates[i] = p.Date
		prices[i] = p.Price
	}
	return stats.Returns(dates, prices)
}

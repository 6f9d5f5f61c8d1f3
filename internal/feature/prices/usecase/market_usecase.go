package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/platform/metrics"
	"crypto_backend/internal/shared/numfmt"
	"crypto_backend/internal/shared/outcome"
)

const (
	// DefaultMarketTTL はマーケットデータのキャッシュ有効期間です。
	DefaultMarketTTL = 90 * time.Second
	// DefaultHistoryTTL は価格チャートのキャッシュ有効期間です。
	DefaultHistoryTTL = 300 * time.Second
	// HistoryDays は価格チャートの表示日数です。
	HistoryDays = 7

	marketCacheKey     = "market"
	historyCachePrefix = "history:"
)

// Cache はJSONペイロードを保持するキャッシュです。
// Get は保存からの経過時間を返し、鮮度は呼び出し側が判断します。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, bool)
	Put(ctx context.Context, key string, value []byte)
	DeletePrefix(ctx context.Context, prefix string)
}

// TTLs はキャッシュの有効期間です。
type TTLs struct {
	Market  time.Duration
	History time.Duration
}

// InitResult は履歴初期化の結果です。
type InitResult struct {
	Days   int
	Coins  int
	Failed []string
}

// MarketUsecase はマーケットデータと価格チャートをキャッシュ付きで提供します。
type MarketUsecase struct {
	history *HistoryUsecase
	market  MarketRepository
	prices  PriceRepository
	cache   Cache
	ttl     TTLs
	coins   []string
}

// NewMarketUsecase は新しい MarketUsecase を作成します。coins は /api/crypto と初期化の対象です。
// TTLが0以下の場合はデフォルト値を使用します。
func NewMarketUsecase(history *HistoryUsecase, market MarketRepository, prices PriceRepository, cache Cache, ttl TTLs, coins []string) *MarketUsecase {
	if ttl.Market <= 0 {
		ttl.Market = DefaultMarketTTL
	}
	if ttl.History <= 0 {
		ttl.History = DefaultHistoryTTL
	}
	return &MarketUsecase{
		history: history,
		market:  market,
		prices:  prices,
		cache:   cache,
		ttl:     ttl,
		coins:   coins,
	}
}

// GetMarkets は対象コインの現在のマーケットデータを返します。
// キャッシュが有効期間内ならそれを返し、期限切れなら取得・保存・古い行の削除を行います。
// 全コインの取得に失敗した場合は古いキャッシュ、なければ保存済みの最新スナップショットを返します。
func (mu *MarketUsecase) GetMarkets(ctx context.Context) ([]entity.MarketQuote, error) {
	cached, age, ok := mu.cache.Get(ctx, marketCacheKey)
	if ok && age < mu.ttl.Market {
		var out []entity.MarketQuote
		if err := json.Unmarshal(cached, &out); err == nil {
			metrics.CacheLookups.WithLabelValues("market", "hit").Inc()
			return out, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("market", lookupResult(ok)).Inc()

	// リクエスト処理中はレートリミットで待たず、枠がなければフォールバックする
	outs, err := mu.history.refresh(ctx, mu.coins, false)
	if err != nil {
		return nil, err
	}

	quotes := make([]entity.MarketQuote, 0, len(outs))
	for _, o := range outcome.Succeeded(outs) {
		q := o.Value
		q.Change24h = numfmt.Round2(q.Change24h)
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 && len(outs) > 0 {
		if ok {
			var stale []entity.MarketQuote
			if err := json.Unmarshal(cached, &stale); err == nil {
				slog.Warn("serving stale market data", "age", age)
				return stale, nil
			}
		}
		stored, err := mu.prices.LatestQuotes(ctx, mu.coins)
		if err != nil {
			return nil, err
		}
		if len(stored) == 0 {
			return nil, ErrFetchUnavailable
		}
		return stored, nil
	}

	if b, err := json.Marshal(quotes); err == nil {
		mu.cache.Put(ctx, marketCacheKey, b)
	}
	return quotes, nil
}

// GetHistory は直近7日分の日次価格をコインごとに返します。
// コインごとに有効なキャッシュがあればそれを使い、取得に失敗した場合は古いキャッシュ、
// それもなければ保存済みの価格履歴にフォールバックします。
func (mu *MarketUsecase) GetHistory(ctx context.Context, coins []string) (entity.HistoryReport, error) {
	today := mu.history.now().UTC()
	dates := make([]string, 0, HistoryDays)
	for i := HistoryDays - 1; i >= 0; i-- {
		dates = append(dates, entity.DateOf(today.AddDate(0, 0, -i)))
	}

	report := entity.HistoryReport{Dates: dates, Prices: make(map[string][]*float64, len(coins))}
	for _, coin := range coins {
		points, err := mu.coinHistory(ctx, coin)
		if err != nil {
			return entity.HistoryReport{}, err
		}
		report.Prices[coin] = alignToDates(dates, points)
	}
	return report, nil
}

func (mu *MarketUsecase) coinHistory(ctx context.Context, coin string) ([]entity.PricePoint, error) {
	key := historyCachePrefix + coin
	cached, age, ok := mu.cache.Get(ctx, key)
	if ok && age < mu.ttl.History {
		var pts []entity.PricePoint
		if err := json.Unmarshal(cached, &pts); err == nil {
			metrics.CacheLookups.WithLabelValues("history", "hit").Inc()
			return pts, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("history", lookupResult(ok)).Inc()

	var samples []entity.PriceSample
	err := ErrRateLimited
	if mu.history.rateLimiter.Allow() {
		samples, err = mu.market.GetMarketChart(ctx, coin, HistoryDays)
	}
	if err != nil {
		if !errors.Is(err, ErrFetchUnavailable) {
			return nil, err
		}
		slog.Warn("history fetch failed, falling back", "coin", coin, "error", err)
		if ok {
			var pts []entity.PricePoint
			if uerr := json.Unmarshal(cached, &pts); uerr == nil {
				return pts, nil
			}
		}
		return mu.prices.FindRecent(ctx, coin, HistoryDays)
	}

	points := DailyCloses(coin, samples)
	if len(points) > 0 {
		if err := mu.prices.UpsertBatch(ctx, points); err != nil {
			// チャート表示は保存の成否に依存しない
			slog.Error("failed to store history", "coin", coin, "error", err)
		}
	}
	if len(points) > HistoryDays {
		points = points[len(points)-HistoryDays:]
	}
	if b, err := json.Marshal(points); err == nil {
		mu.cache.Put(ctx, key, b)
	}
	return points, nil
}

// InitHistory は対象コインの365日分の履歴を同期的に取り込みます。
func (mu *MarketUsecase) InitHistory(ctx context.Context) (InitResult, error) {
	outs := mu.history.Backfill(ctx, mu.coins, BackfillDays)
	mu.cache.DeletePrefix(ctx, historyCachePrefix)

	failed := outcome.Coins(outcome.Failed(outs))
	if len(failed) == len(outs) && len(outs) > 0 {
		return InitResult{}, fmt.Errorf("backfill failed for every coin: %w", outs[0].Err)
	}
	return InitResult{Days: BackfillDays, Coins: len(outs), Failed: failed}, nil
}

func alignToDates(dates []string, points []entity.PricePoint) []*float64 {
	byDate := make(map[string]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Price
	}
	out := make([]*float64, len(dates))
	for i, d := range dates {
		if v, ok := byDate[d]; ok {
			r := numfmt.Round2(v)
			out[i] = &r
		}
	}
	return out
}

func lookupResult(present bool) string {
	if present {
		return "stale"
	}
	return "miss"
}

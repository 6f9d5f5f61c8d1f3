// Package usecase は価格履歴の取得・保存とマーケットデータ提供のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/shared/outcome"
	"crypto_backend/internal/shared/ratelimiter"
)

const (
	// PriceRetentionDays は価格履歴を保持する日数です。
	PriceRetentionDays = 365
	// SnapshotRetention はマーケットスナップショットを保持する期間です。
	SnapshotRetention = 30 * 24 * time.Hour
	// BackfillDays は初期取り込みで取得する日数です。
	BackfillDays = 365
)

// MarketRepository は外部APIから価格データを取得するリポジトリのインターフェイスです。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type MarketRepository interface {
	// GetMarketChart は過去 days 日分の (時刻, 価格) を古い順に返します。
	GetMarketChart(ctx context.Context, coin string, days int) ([]entity.PriceSample, error)
	// GetQuote は現在の価格・24時間変動率・出来高を返します。
	GetQuote(ctx context.Context, coin string) (entity.MarketQuote, error)
}

// RefreshBatch はリフレッシュ1回分の書き込み内容です。1トランザクションで保存されます。
type RefreshBatch struct {
	Quotes         []entity.MarketQuote
	FetchedAt      time.Time // スナップショットの取得時刻。今日の日付もここから決まる
	PriceCutoff    string    // この日付より前の価格履歴を削除する
	SnapshotCutoff time.Time // この時刻より前のスナップショットを削除する
}

// PriceRepository は価格履歴とマーケットスナップショットの永続化を抽象化します。
type PriceRepository interface {
	// UpsertBatch は (coin, date) 単位で価格を挿入または上書きします。
	UpsertBatch(ctx context.Context, points []entity.PricePoint) error
	// SaveRefresh はスナップショット挿入・今日の価格の上書き・古い行の削除を1トランザクションで行います。
	SaveRefresh(ctx context.Context, batch RefreshBatch) error
	// FindRecent は直近 limit 件の価格を日付の昇順で返します。
	FindRecent(ctx context.Context, coin string, limit int) ([]entity.PricePoint, error)
	// LatestQuotes は各コインの最新スナップショットを返します。
	LatestQuotes(ctx context.Context, coins []string) ([]entity.MarketQuote, error)
	// HasAny は価格履歴が1件でも存在するかを返します。
	HasAny(ctx context.Context) (bool, error)
}

// HistoryUsecase は外部APIから価格を取得し、日次価格として永続化するユースケースを定義します。
type HistoryUsecase struct {
	market      MarketRepository
	prices      PriceRepository
	rateLimiter ratelimiter.RateLimiterInterface
	now         func() time.Time
}

// NewHistoryUsecase は新しい HistoryUsecase を作成します。
func NewHistoryUsecase(market MarketRepository, prices PriceRepository, rateLimiter ratelimiter.RateLimiterInterface) *HistoryUsecase {
	return &HistoryUsecase{market: market, prices: prices, rateLimiter: rateLimiter, now: time.Now}
}

// WithClock は現在時刻の取得関数を差し替えます。
func (hu *HistoryUsecase) WithClock(now func() time.Time) *HistoryUsecase {
	hu.now = now
	return hu
}

// UpsertDailyPrice は (coin, date) の価格を書き込みます。既存の値は上書きされます。
func (hu *HistoryUsecase) UpsertDailyPrice(ctx context.Context, coin, date string, price float64) error {
	if _, err := time.Parse(entity.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if coin == "" {
		return fmt.Errorf("%w: empty coin", ErrInvalidPrice)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return hu.prices.UpsertBatch(ctx, []entity.PricePoint{{Coin: coin, Date: date, Price: price}})
}

// IngestHistory はサンプルをUTCの日付ごとにまとめて保存し、保存した日数を返します。
// 同じ日に複数のサンプルがある場合は時刻が最も新しいものを採用するため、入力順に依存しません。
func (hu *HistoryUsecase) IngestHistory(ctx context.Context, coin string, samples []entity.PriceSample) (int, error) {
	points := DailyCloses(coin, samples)
	if len(points) == 0 {
		return 0, nil
	}
	if err := hu.prices.UpsertBatch(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// RefreshSnapshotAndCleanup は各コインの現在価格を取得し、スナップショットと今日の価格を保存したうえで
// 保持期間を過ぎた行を削除します。書き込みと削除は1トランザクションで行われます。
// 1つのコインで取得に失敗しても処理は止めず、結果はコイン単位で返します。
func (hu *HistoryUsecase) RefreshSnapshotAndCleanup(ctx context.Context, coins []string) ([]outcome.Outcome[entity.MarketQuote], error) {
	return hu.refresh(ctx, coins, true)
}

// refresh は blocking が false の場合レートリミットで待機せず、枠がないコインを ErrRateLimited として扱います。
func (hu *HistoryUsecase) refresh(ctx context.Context, coins []string, blocking bool) ([]outcome.Outcome[entity.MarketQuote], error) {
	outs := make([]outcome.Outcome[entity.MarketQuote], 0, len(coins))
	quotes := make([]entity.MarketQuote, 0, len(coins))

	for _, coin := range coins {
		if blocking {
			hu.rateLimiter.WaitIfNeeded()
		} else if !hu.rateLimiter.Allow() {
			outs = append(outs, outcome.Outcome[entity.MarketQuote]{Coin: coin, Err: ErrRateLimited})
			continue
		}
		q, err := hu.market.GetQuote(ctx, coin)
		if err != nil {
			slog.Error("failed to fetch quote", "coin", coin, "error", err)
			outs = append(outs, outcome.Outcome[entity.MarketQuote]{Coin: coin, Err: err})
			continue
		}
		q.Coin = coin
		quotes = append(quotes, q)
		outs = append(outs, outcome.Outcome[entity.MarketQuote]{Coin: coin, Value: q})
	}

	now := hu.now().UTC()
	batch := RefreshBatch{
		Quotes:         quotes,
		FetchedAt:      now,
		PriceCutoff:    entity.DateOf(now.AddDate(0, 0, -PriceRetentionDays)),
		SnapshotCutoff: now.Add(-SnapshotRetention),
	}
	if err := hu.prices.SaveRefresh(ctx, batch); err != nil {
		return outs, fmt.Errorf("save refresh: %w", err)
	}

	slog.Info("market refresh done", "coins", len(coins), "succeeded", len(quotes))
	return outs, nil
}

// Backfill は各コインの過去 days 日分の価格を取得して保存します。
// APIのレートリミットを考慮してリクエスト間に待機を挟み、失敗はコイン単位で記録して次へ進みます。
func (hu *HistoryUsecase) Backfill(ctx context.Context, coins []string, days int) []outcome.Outcome[int] {
	outs := make([]outcome.Outcome[int], 0, len(coins))
	for _, coin := range coins {
		if err := ctx.Err(); err != nil {
			outs = append(outs, outcome.Outcome[int]{Coin: coin, Err: err})
			continue
		}
		hu.rateLimiter.WaitIfNeeded()
		n, err := hu.backfillOne(ctx, coin, days)
		if err != nil {
			// 1つのコインでエラーが発生しても処理を止めずにログに出力し、次の処理を続ける
			slog.Error("failed to backfill history", "coin", coin, "days", days, "error", err)
			outs = append(outs, outcome.Outcome[int]{Coin: coin, Err: err})
			continue
		}
		outs = append(outs, outcome.Outcome[int]{Coin: coin, Value: n})
	}
	return outs
}

func (hu *HistoryUsecase) backfillOne(ctx context.Context, coin string, days int) (int, error) {
	samples, err := hu.market.GetMarketChart(ctx, coin, days)
	if err != nil {
		return 0, err
	}
	return hu.IngestHistory(ctx, coin, samples)
}

// HasHistory は価格履歴が既に存在するかを返します。
func (hu *HistoryUsecase) HasHistory(ctx context.Context) (bool, error) {
	return hu.prices.HasAny(ctx)
}

// DailyCloses はサンプルをUTCの日付ごとに1件へまとめ、日付の昇順で返します。
// 同じ日の中では時刻が最も新しいサンプルの価格を採用します。
func DailyCloses(coin string, samples []entity.PriceSample) []entity.PricePoint {
	type latest struct {
		at    time.Time
		price float64
	}
	byDate := make(map[string]latest, len(samples))
	order := make([]string, 0)
	for _, s := range samples {
		d := entity.DateOf(s.Time)
		cur, ok := byDate[d]
		if !ok {
			order = append(order, d)
		}
		if !ok || !s.Time.Before(cur.at) {
			byDate[d] = latest{at: s.Time, price: s.Price}
		}
	}

	slices.Sort(order)
	out := make([]entity.PricePoint, 0, len(order))
	for _, d := range order {
		out = append(out, entity.PricePoint{Coin: coin, Date: d, Price: byDate[d].price})
	}
	return out
}

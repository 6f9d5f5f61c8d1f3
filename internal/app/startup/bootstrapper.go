// Package startup は起動時の履歴初期化と日次リフレッシュを行います。
package startup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/platform/cache"
	"crypto_backend/internal/shared/outcome"
)

// BackfillDays は初回起動時に取得する履歴の日数です。
const BackfillDays = 365

// HistoryWarmer は起動時処理に必要な価格履歴の操作です。
type HistoryWarmer interface {
	HasHistory(ctx context.Context) (bool, error)
	Backfill(ctx context.Context, coins []string, days int) []outcome.Outcome[int]
	RefreshSnapshotAndCleanup(ctx context.Context, coins []string) ([]outcome.Outcome[entity.MarketQuote], error)
}

// Bootstrapper はプロセスごとに一度だけ初期化を行い、その後UTC 0時ごとにリフレッシュします。
type Bootstrapper struct {
	ctx     context.Context
	history HistoryWarmer
	coins   []string

	once  sync.Once
	ready chan struct{}

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewBootstrapper は新しい Bootstrapper を作成します。
// ctx がキャンセルされると日次リフレッシュを停止します。
func NewBootstrapper(ctx context.Context, history HistoryWarmer, coins []string) *Bootstrapper {
	return &Bootstrapper{
		ctx:     ctx,
		history: history,
		coins:   coins,
		ready:   make(chan struct{}),
		now:     time.Now,
		after:   time.After,
	}
}

// Start は初期化を別ゴルーチンで開始します。2回目以降の呼び出しは何もしません。
func (b *Bootstrapper) Start() {
	b.once.Do(func() {
		go b.run()
	})
}

// Ready は初回の初期化が終わると閉じられます。
func (b *Bootstrapper) Ready() <-chan struct{} {
	return b.ready
}

// Middleware は最初のリクエストで初期化を開始するginミドルウェアです。
// リクエストは初期化の完了を待ちません。
func (b *Bootstrapper) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		b.Start()
		c.Next()
	}
}

func (b *Bootstrapper) run() {
	b.warmUp()
	close(b.ready)

	for {
		wait := cache.TimeUntilNextUTCMidnight(b.now())
		select {
		case <-b.ctx.Done():
			slog.Info("daily refresh stopped")
			return
		case <-b.after(wait):
			b.refresh()
		}
	}
}

func (b *Bootstrapper) warmUp() {
	has, err := b.history.HasHistory(b.ctx)
	if err != nil {
		slog.Error("failed to check price history", "error", err)
	}
	if err == nil && !has {
		slog.Info("no price history, starting backfill", "days", BackfillDays, "coins", len(b.coins))
		results := b.history.Backfill(b.ctx, b.coins, BackfillDays)
		for _, r := range outcome.Failed(results) {
			slog.Warn("backfill failed", "coin", r.Coin, "error", r.Err)
		}
	}
	b.refresh()
}

func (b *Bootstrapper) refresh() {
	results, err := b.history.RefreshSnapshotAndCleanup(b.ctx, b.coins)
	if err != nil {
		slog.Error("failed to refresh market snapshot", "error", err)
		return
	}
	slog.Info("market snapshot refreshed", "ok", len(outcome.Succeeded(results)), "failed", len(outcome.Failed(results)))
}

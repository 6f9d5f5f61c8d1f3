package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crypto_backend/internal/feature/riskmetrics/domain/entity"
	"crypto_backend/internal/platform/metrics"
)

const (
	// DefaultRiskTTL はリスク指標のキャッシュ有効期間です。
	DefaultRiskTTL = 300 * time.Second
	// SnapshotRetention はリスク指標スナップショットを保持する期間です。
	SnapshotRetention = 30 * 24 * time.Hour

	riskCacheKeyFormat = "risk:%d"
)

// Cache はJSONペイロードを保持するキャッシュです。鮮度は呼び出し側が経過時間で判断します。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, bool)
	Put(ctx context.Context, key string, value []byte)
}

// SnapshotRepository はリスク指標スナップショットの永続化を抽象化します。
type SnapshotRepository interface {
	// Save はスナップショットの全行を追加し、pruneBefore より古い行を削除します。
	Save(ctx context.Context, snap entity.Snapshot, pruneBefore time.Time) error
	// Latest は指定期間の最新の計算結果を返します。存在しない場合は false を返します。
	Latest(ctx context.Context, days int) (entity.Snapshot, bool, error)
}

// SlotResult はバッチ計算における1期間分の結果です。
type SlotResult struct {
	Days int
	Rows int
	Err  error
}

// BatchResult は全期間のバッチ計算結果です。Slots は entity.Windows の順です。
type BatchResult struct {
	ComputedAt time.Time
	Slots      []SlotResult
}

// RiskUsecase はリスク指標をキャッシュと永続スナップショット付きで提供します。
type RiskUsecase struct {
	engine    *MetricsEngine
	snapshots SnapshotRepository
	cache     Cache
	ttl       time.Duration
	coins     []string
	reference string
	now       func() time.Time
}

// NewRiskUsecase は新しい RiskUsecase を作成します。ttl が0以下の場合は DefaultRiskTTL を使用します。
func NewRiskUsecase(engine *MetricsEngine, snapshots SnapshotRepository, cache Cache, ttl time.Duration, coins []string, reference string) *RiskUsecase {
	if ttl <= 0 {
		ttl = DefaultRiskTTL
	}
	return &RiskUsecase{
		engine:    engine,
		snapshots: snapshots,
		cache:     cache,
		ttl:       ttl,
		coins:     coins,
		reference: reference,
		now:       time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替えます。
func (ru *RiskUsecase) WithClock(now func() time.Time) *RiskUsecase {
	ru.now = now
	return ru
}

// NormalizeDays は対応していない期間を DefaultWindow に置き換えます。
func NormalizeDays(days int) int {
	if entity.IsWindow(days) {
		return days
	}
	return entity.DefaultWindow
}

// GetRiskMetrics は指定期間のリスク指標を返します。
// キャッシュが有効期間内ならそれをそのまま返し、そうでなければ計算してスナップショットを保存します。
// 同時に期限切れを検出したリクエストはそれぞれ計算します。
func (ru *RiskUsecase) GetRiskMetrics(ctx context.Context, days int) (entity.Snapshot, error) {
	days = NormalizeDays(days)
	key := fmt.Sprintf(riskCacheKeyFormat, days)

	if cached, age, ok := ru.cache.Get(ctx, key); ok && age < ru.ttl {
		var snap entity.Snapshot
		if err := json.Unmarshal(cached, &snap); err == nil {
			metrics.CacheLookups.WithLabelValues("risk", "hit").Inc()
			return snap, nil
		}
		slog.Warn("discarding undecodable risk cache entry", "key", key)
	} else if ok {
		metrics.CacheLookups.WithLabelValues("risk", "stale").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("risk", "miss").Inc()
	}

	return ru.compute(ctx, days, ru.now())
}

// RunBatch は全期間のリスク指標を並行して計算し、同じ計算時刻で保存します。
// ある期間の失敗は他の期間に影響せず、結果は期間ごとに返します。
// 各ゴルーチンはエラーを SlotResult に記録して nil を返すので、gctx が取り消されるのは ctx 自体が取り消された場合だけです。
func (ru *RiskUsecase) RunBatch(ctx context.Context) BatchResult {
	computedAt := ru.now()
	slots := make([]SlotResult, len(entity.Windows))

	g, gctx := errgroup.WithContext(ctx)
	for i, days := range entity.Windows {
		g.Go(func() error {
			snap, err := ru.compute(gctx, days, computedAt)
			if err != nil {
				slog.Error("risk batch slot failed", "days", days, "error", err)
				slots[i] = SlotResult{Days: days, Err: err}
				return nil
			}
			slots[i] = SlotResult{Days: days, Rows: len(snap.Rows)}
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{ComputedAt: computedAt.UTC().Truncate(time.Second), Slots: slots}
}

// Latest は指定期間の直近の保存済みスナップショットを再計算せずに返します。
func (ru *RiskUsecase) Latest(ctx context.Context, days int) (entity.Snapshot, bool, error) {
	return ru.snapshots.Latest(ctx, NormalizeDays(days))
}

// compute は指標を計算し、スナップショットの保存とキャッシュの更新を行います。
func (ru *RiskUsecase) compute(ctx context.Context, days int, at time.Time) (entity.Snapshot, error) {
	rows, err := ru.engine.ComputeRiskMetrics(ctx, ru.coins, ru.reference, days)
	if err != nil {
		return entity.Snapshot{}, err
	}

	computedAt := at.UTC().Truncate(time.Second)
	snap := entity.Snapshot{
		BatchID:    uuid.NewString(),
		Days:       days,
		ComputedAt: computedAt,
		Rows:       rows,
	}
	if err := ru.snapshots.Save(ctx, snap, ru.now().UTC().Add(-SnapshotRetention)); err != nil {
		return entity.Snapshot{}, fmt.Errorf("save risk snapshot: %w", err)
	}

	if b, err := json.Marshal(snap); err == nil {
		ru.cache.Put(ctx, fmt.Sprintf(riskCacheKeyFormat, days), b)
	}
	slog.Info("risk metrics computed", "days", days, "rows", len(rows), "batch_id", snap.BatchID)
	return snap, nil
}

// Package adapters はriskmetricsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	coinadapters "crypto_backend/internal/feature/coins/adapters"
	"crypto_backend/internal/feature/riskmetrics/domain/entity"
	"crypto_backend/internal/feature/riskmetrics/usecase"
	"crypto_backend/internal/platform/db"
)

// RiskSnapshotModel は risk_metrics_snapshot テーブルの行です。
// 1回の計算で保存された行は batch_id と computed_at を共有します。
type RiskSnapshotModel struct {
	ID          uint      `gorm:"primaryKey"`
	CoinID      uint      `gorm:"not null;index"`
	Days        int       `gorm:"not null;index:risk_days_computed,priority:1"`
	BatchID     string    `gorm:"size:36;not null;index"`
	ComputedAt  time.Time `gorm:"not null;index:risk_days_computed,priority:2;index"`
	Volatility  float64   `gorm:"not null"`
	Sharpe      float64   `gorm:"not null"`
	Beta        float64   `gorm:"not null"`
	ValueAtRisk float64   `gorm:"column:var;not null"`
	Risk        string    `gorm:"size:8"`
}

func (RiskSnapshotModel) TableName() string {
	return "risk_metrics_snapshot"
}

type snapshotRepository struct {
	gate *db.WriteGate
}

var _ usecase.SnapshotRepository = (*snapshotRepository)(nil)

// NewSnapshotRepository は書き込みゲート経由で保存するリポジトリを生成します。
func NewSnapshotRepository(gate *db.WriteGate) *snapshotRepository {
	return &snapshotRepository{gate: gate}
}

// Save はスナップショットの全行を追加し、pruneBefore より古い行を同じトランザクションで削除します。
func (r *snapshotRepository) Save(ctx context.Context, snap entity.Snapshot, pruneBefore time.Time) error {
	return r.gate.Do(ctx, func(tx *gorm.DB) error {
		if len(snap.Rows) > 0 {
			names := make([]string, 0, len(snap.Rows))
			for _, row := range snap.Rows {
				names = append(names, row.Coin)
			}
			ids, err := coinadapters.EnsureCoinIDs(tx, names)
			if err != nil {
				return err
			}

			ms := make([]RiskSnapshotModel, 0, len(snap.Rows))
			for _, row := range snap.Rows {
				ms = append(ms, RiskSnapshotModel{
					CoinID:      ids[row.Coin],
					Days:        snap.Days,
					BatchID:     snap.BatchID,
					ComputedAt:  snap.ComputedAt.UTC(),
					Volatility:  row.Volatility,
					Sharpe:      row.Sharpe,
					Beta:        row.Beta,
					ValueAtRisk: row.VaR,
					Risk:        string(row.Risk),
				})
			}
			if err := tx.Create(&ms).Error; err != nil {
				return err
			}
		}
		return tx.Where("computed_at < ?", pruneBefore.UTC()).Delete(&RiskSnapshotModel{}).Error
	})
}

// Latest は指定期間で computed_at が最大のバッチを返します。
func (r *snapshotRepository) Latest(ctx context.Context, days int) (entity.Snapshot, bool, error) {
	gdb := r.gate.DB().WithContext(ctx)

	var head RiskSnapshotModel
	err := gdb.Where("days = ?", days).
		Order("computed_at DESC").
		Order("id DESC").
		Take(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Snapshot{}, false, nil
	}
	if err != nil {
		return entity.Snapshot{}, false, err
	}

	var rows []struct {
		CoinName    string
		Symbol      string
		Volatility  float64
		Sharpe      float64
		Beta        float64
		ValueAtRisk float64 `gorm:"column:var"`
		Risk        string
	}
	err = gdb.Table("risk_metrics_snapshot AS r").
		Select("c.coin_name, c.symbol, r.volatility, r.sharpe, r.beta, r.var, r.risk").
		Joins("JOIN coins c ON c.coin_id = r.coin_id").
		Where("r.batch_id = ?", head.BatchID).
		Order("r.id ASC").
		Scan(&rows).Error
	if err != nil {
		return entity.Snapshot{}, false, err
	}

	snap := entity.Snapshot{
		BatchID:    head.BatchID,
		Days:       days,
		ComputedAt: head.ComputedAt.UTC(),
		Rows:       make([]entity.CoinMetrics, 0, len(rows)),
	}
	for _, row := range rows {
		m := entity.CoinMetrics{
			Coin:       row.CoinName,
			Symbol:     row.Symbol,
			Volatility: row.Volatility,
			Sharpe:     row.Sharpe,
			Beta:       row.Beta,
			VaR:        row.ValueAtRisk,
			Risk:       entity.RiskLevel(row.Risk),
		}
		if m.Risk == "" {
			m.Risk = entity.ClassifyRisk(m.Volatility)
		}
		snap.Rows = append(snap.Rows, m)
	}
	return snap, true, nil
}

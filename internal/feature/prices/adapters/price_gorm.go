// Package adapters はpricesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	coinadapters "crypto_backend/internal/feature/coins/adapters"
	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/prices/usecase"
	"crypto_backend/internal/platform/db"
)

const upsertBatchSize = 500

// PriceModel は price_history テーブルの行です。(coin_id, date) は一意です。
type PriceModel struct {
	ID     uint    `gorm:"primaryKey"`
	CoinID uint    `gorm:"not null;uniqueIndex:price_coin_date,priority:1"`
	Date   string  `gorm:"size:10;not null;uniqueIndex:price_coin_date,priority:2;index"`
	Price  float64 `gorm:"not null"`
}

func (PriceModel) TableName() string {
	return "price_history"
}

// MarketSnapshotModel は market_snapshot テーブルの行です。追記のみで、古い行は削除されます。
type MarketSnapshotModel struct {
	ID        uint      `gorm:"primaryKey"`
	CoinID    uint      `gorm:"not null;index"`
	FetchedAt time.Time `gorm:"not null;index"`
	Price     float64   `gorm:"not null"`
	Change24h float64   `gorm:"column:change_24h;not null;default:0"`
	Volume    float64   `gorm:"not null;default:0"`
}

func (MarketSnapshotModel) TableName() string {
	return "market_snapshot"
}

type priceRepository struct {
	gate *db.WriteGate
}

var _ usecase.PriceRepository = (*priceRepository)(nil)

// NewPriceRepository は書き込みゲート経由で保存するリポジトリを生成します。
func NewPriceRepository(gate *db.WriteGate) *priceRepository {
	return &priceRepository{gate: gate}
}

// UpsertBatch は価格を (coin, date) 単位で挿入または上書きします。
// 同じ (coin, date) が複数含まれる場合は後ろの値を採用します。
func (r *priceRepository) UpsertBatch(ctx context.Context, points []entity.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.gate.Do(ctx, func(tx *gorm.DB) error {
		return upsertPrices(tx, points)
	})
}

// SaveRefresh はスナップショットの追加、今日の価格の上書き、保持期間を過ぎた行の削除を1トランザクションで行います。
func (r *priceRepository) SaveRefresh(ctx context.Context, batch usecase.RefreshBatch) error {
	fetchedAt := batch.FetchedAt.UTC()
	today := entity.DateOf(fetchedAt)

	return r.gate.Do(ctx, func(tx *gorm.DB) error {
		if len(batch.Quotes) > 0 {
			names := make([]string, 0, len(batch.Quotes))
			for _, q := range batch.Quotes {
				names = append(names, q.Coin)
			}
			ids, err := coinadapters.EnsureCoinIDs(tx, names)
			if err != nil {
				return err
			}

			snaps := make([]MarketSnapshotModel, 0, len(batch.Quotes))
			points := make([]entity.PricePoint, 0, len(batch.Quotes))
			for _, q := range batch.Quotes {
				snaps = append(snaps, MarketSnapshotModel{
					CoinID:    ids[q.Coin],
					FetchedAt: fetchedAt,
					Price:     q.Price,
					Change24h: q.Change24h,
					Volume:    q.Volume,
				})
				points = append(points, entity.PricePoint{Coin: q.Coin, Date: today, Price: q.Price})
			}
			if err := tx.Create(&snaps).Error; err != nil {
				return err
			}
			if err := upsertPrices(tx, points); err != nil {
				return err
			}
		}

		if err := tx.Where("date < ?", batch.PriceCutoff).Delete(&PriceModel{}).Error; err != nil {
			return err
		}
		return tx.Where("fetched_at < ?", batch.SnapshotCutoff.UTC()).Delete(&MarketSnapshotModel{}).Error
	})
}

// FindRecent は直近 limit 件の価格を日付の昇順で返します。
func (r *priceRepository) FindRecent(ctx context.Context, coin string, limit int) ([]entity.PricePoint, error) {
	var rows []struct {
		Date  string
		Price float64
	}
	q := r.gate.DB().WithContext(ctx).
		Table("price_history AS p").
		Select("p.date, p.price").
		Joins("JOIN coins c ON c.coin_id = p.coin_id").
		Where("c.coin_name = ?", coin).
		Order("p.date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.PricePoint, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = entity.PricePoint{Coin: coin, Date: m.Date, Price: m.Price}
	}
	return out, nil
}

// LatestQuotes は各コインの最新のスナップショットを返します。スナップショットのないコインは含みません。
func (r *priceRepository) LatestQuotes(ctx context.Context, coins []string) ([]entity.MarketQuote, error) {
	out := make([]entity.MarketQuote, 0, len(coins))
	for _, coin := range coins {
		var row struct {
			Symbol    string
			Price     float64
			Change24h float64 `gorm:"column:change_24h"`
			Volume    float64
		}
		err := r.gate.DB().WithContext(ctx).
			Table("market_snapshot AS s").
			Select("c.symbol, s.price, s.change_24h, s.volume").
			Joins("JOIN coins c ON c.coin_id = s.coin_id").
			Where("c.coin_name = ?", coin).
			Order("s.fetched_at DESC").
			Order("s.id DESC").
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity.MarketQuote{
			Coin:      coin,
			Name:      coin,
			Symbol:    row.Symbol,
			Price:     row.Price,
			Change24h: row.Change24h,
			Volume:    row.Volume,
		})
	}
	return out, nil
}

// HasAny は価格履歴が1件でも存在するかを返します。
func (r *priceRepository) HasAny(ctx context.Context) (bool, error) {
	var n int64
	if err := r.gate.DB().WithContext(ctx).Model(&PriceModel{}).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// upsertPrices はトランザクション内で価格を挿入または上書きします。
func upsertPrices(tx *gorm.DB, points []entity.PricePoint) error {
	names := make([]string, 0, len(points))
	for _, p := range points {
		names = append(names, p.Coin)
	}
	ids, err := coinadapters.EnsureCoinIDs(tx, names)
	if err != nil {
		return err
	}

	// 同じキーを1文で2回更新できないため、後勝ちで重複を除く
	type key struct {
		coinID uint
		date   string
	}
	idx := make(map[key]int, len(points))
	ms := make([]PriceModel, 0, len(points))
	for _, p := range points {
		k := key{coinID: ids[p.Coin], date: p.Date}
		if i, ok := idx[k]; ok {
			ms[i].Price = p.Price
			continue
		}
		idx[k] = len(ms)
		ms = append(ms, PriceModel{CoinID: k.coinID, Date: p.Date, Price: p.Price})
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coin_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"price"}),
	}).CreateInBatches(&ms, upsertBatchSize).Error
}

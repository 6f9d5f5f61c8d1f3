// Package adapters はcoinsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crypto_backend/internal/feature/coins/domain/entity"
	"crypto_backend/internal/feature/coins/usecase"
)

// CoinModel は coins テーブルの行です。
type CoinModel struct {
	CoinID   uint   `gorm:"column:coin_id;primaryKey;autoIncrement"`
	CoinName string `gorm:"column:coin_name;size:64;not null;uniqueIndex"`
	Symbol   string `gorm:"size:16;not null"`
}

func (CoinModel) TableName() string {
	return "coins"
}

// coinRepository はCoinRepositoryインターフェースのgorm実装です。
type coinRepository struct {
	db *gorm.DB
}

var _ usecase.CoinRepository = (*coinRepository)(nil)

// NewCoinRepository は指定されたDB接続でcoinRepositoryの新しいインスタンスを生成します。
func NewCoinRepository(db *gorm.DB) *coinRepository {
	return &coinRepository{db: db}
}

// List は保存済みの全コインをID順に返します。
func (r *coinRepository) List(ctx context.Context) ([]entity.Coin, error) {
	var rows []CoinModel
	if err := r.db.WithContext(ctx).Order("coin_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Coin, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Coin{ID: m.CoinName, Symbol: m.Symbol})
	}
	return out, nil
}

// EnsureCoinID はコインの行IDを返し、存在しなければ作成します。
// 書き込みトランザクション内から呼び出されることを想定しています。
func EnsureCoinID(tx *gorm.DB, name string) (uint, error) {
	m := CoinModel{CoinName: name, Symbol: usecase.SymbolFor(name)}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coin_name"}},
		DoNothing: true,
	}).Create(&m).Error; err != nil {
		return 0, fmt.Errorf("ensure coin %q: %w", name, err)
	}

	var row CoinModel
	if err := tx.Where("coin_name = ?", name).Take(&row).Error; err != nil {
		return 0, fmt.Errorf("lookup coin %q: %w", name, err)
	}
	return row.CoinID, nil
}

// EnsureCoinIDs は複数コインの行IDをまとめて解決します。
func EnsureCoinIDs(tx *gorm.DB, names []string) (map[string]uint, error) {
	ids := make(map[string]uint, len(names))
	for _, n := range names {
		if _, ok := ids[n]; ok {
			continue
		}
		id, err := EnsureCoinID(tx, n)
		if err != nil {
			return nil, err
		}
		ids[n] = id
	}
	return ids, nil
}

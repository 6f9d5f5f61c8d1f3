package adapters

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	coinadapters "crypto_backend/internal/feature/coins/adapters"
	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/prices/usecase"
	"crypto_backend/internal/platform/db"
)

// setupTestRepo は一時ファイルのSQLiteにテーブルを作成し、リポジトリを返します。
func setupTestRepo(t *testing.T) (*priceRepository, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "prices.db")), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = gdb.AutoMigrate(&coinadapters.CoinModel{}, &PriceModel{}, &MarketSnapshotModel{})
	require.NoError(t, err, "failed to migrate tables")

	return NewPriceRepository(db.NewWriteGate(gdb)), gdb
}

// pricesOf は指定コインの保存済み価格を日付順に返します。
func pricesOf(t *testing.T, gdb *gorm.DB, coin string) []PriceModel {
	t.Helper()

	var rows []PriceModel
	err := gdb.Joins("JOIN coins c ON c.coin_id = price_history.coin_id").
		Where("c.coin_name = ?", coin).
		Order("date ASC").
		Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func TestNewPriceRepository(t *testing.T) {
	repo, _ := setupTestRepo(t)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.gate, "write gate is nil")
}

func TestPriceRepository_UpsertBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		setupFunc    func(t *testing.T, repo *priceRepository)
		points       []entity.PricePoint
		validateFunc func(t *testing.T, gdb *gorm.DB)
	}{
		{
			name:   "success: insert single point",
			points: []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 100}},
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				rows := pricesOf(t, gdb, "bitcoin")
				require.Len(t, rows, 1)
				assert.Equal(t, 100.0, rows[0].Price)
			},
		},
		{
			name: "idempotent: same arguments twice leave one row",
			setupFunc: func(t *testing.T, repo *priceRepository) {
				require.NoError(t, repo.UpsertBatch(context.Background(), []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 100}}))
			},
			points: []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 100}},
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				rows := pricesOf(t, gdb, "bitcoin")
				require.Len(t, rows, 1)
				assert.Equal(t, 100.0, rows[0].Price)
			},
		},
		{
			name: "overwrite: second write replaces price",
			setupFunc: func(t *testing.T, repo *priceRepository) {
				require.NoError(t, repo.UpsertBatch(context.Background(), []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 100}}))
			},
			points: []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 105}},
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				rows := pricesOf(t, gdb, "bitcoin")
				require.Len(t, rows, 1)
				assert.Equal(t, 105.0, rows[0].Price)
			},
		},
		{
			name: "duplicates within one batch: last value wins",
			points: []entity.PricePoint{
				{Coin: "ethereum", Date: "2024-01-01", Price: 1},
				{Coin: "ethereum", Date: "2024-01-01", Price: 2},
				{Coin: "ethereum", Date: "2024-01-02", Price: 3},
			},
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				rows := pricesOf(t, gdb, "ethereum")
				require.Len(t, rows, 2)
				assert.Equal(t, 2.0, rows[0].Price)
				assert.Equal(t, 3.0, rows[1].Price)
			},
		},
		{
			name: "coins are created lazily once",
			points: []entity.PricePoint{
				{Coin: "bitcoin", Date: "2024-01-01", Price: 1},
				{Coin: "solana", Date: "2024-01-01", Price: 2},
				{Coin: "bitcoin", Date: "2024-01-02", Price: 3},
			},
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				var count int64
				gdb.Model(&coinadapters.CoinModel{}).Count(&count)
				assert.Equal(t, int64(2), count)
			},
		},
		{
			name:   "empty batch is a no-op",
			points: nil,
			validateFunc: func(t *testing.T, gdb *gorm.DB) {
				var count int64
				gdb.Model(&PriceModel{}).Count(&count)
				assert.Zero(t, count)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, gdb := setupTestRepo(t)
			if tt.setupFunc != nil {
				tt.setupFunc(t, repo)
			}

			err := repo.UpsertBatch(context.Background(), tt.points)
			require.NoError(t, err)

			tt.validateFunc(t, gdb)
		})
	}
}

func TestPriceRepository_SaveRefresh_WritesAndPrunes(t *testing.T) {
	t.Parallel()

	repo, gdb := setupTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	old := entity.DateOf(now.AddDate(0, 0, -366))
	kept := entity.DateOf(now.AddDate(0, 0, -364))
	require.NoError(t, repo.UpsertBatch(ctx, []entity.PricePoint{
		{Coin: "bitcoin", Date: old, Price: 1},
		{Coin: "bitcoin", Date: kept, Price: 2},
	}))

	ids, err := coinadapters.EnsureCoinIDs(gdb, []string{"bitcoin"})
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&[]MarketSnapshotModel{
		{CoinID: ids["bitcoin"], FetchedAt: now.Add(-31 * 24 * time.Hour), Price: 1},
		{CoinID: ids["bitcoin"], FetchedAt: now.Add(-29 * 24 * time.Hour), Price: 2},
	}).Error)

	err = repo.SaveRefresh(ctx, usecase.RefreshBatch{
		Quotes: []entity.MarketQuote{
			{Coin: "bitcoin", Price: 61000, Change24h: 1.5, Volume: 1e9},
			{Coin: "ethereum", Price: 3400, Change24h: -0.7, Volume: 5e8},
		},
		FetchedAt:      now,
		PriceCutoff:    entity.DateOf(now.AddDate(0, 0, -365)),
		SnapshotCutoff: now.Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	btc := pricesOf(t, gdb, "bitcoin")
	dates := make([]string, 0, len(btc))
	for _, r := range btc {
		dates = append(dates, r.Date)
	}
	assert.NotContains(t, dates, old, "366-day-old price must be pruned")
	assert.Contains(t, dates, kept, "364-day-old price must be kept")
	assert.Contains(t, dates, "2024-06-30", "today's price must be upserted")

	eth := pricesOf(t, gdb, "ethereum")
	require.Len(t, eth, 1)
	assert.Equal(t, 3400.0, eth[0].Price)

	var snaps []MarketSnapshotModel
	require.NoError(t, gdb.Order("id ASC").Find(&snaps).Error)
	require.Len(t, snaps, 3, "old snapshot pruned, two new appended")
	assert.Equal(t, 2.0, snaps[0].Price)
	assert.Equal(t, -0.7, snaps[2].Change24h)
}

func TestPriceRepository_SaveRefresh_NoQuotesStillPrunes(t *testing.T) {
	t.Parallel()

	repo, gdb := setupTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBatch(ctx, []entity.PricePoint{
		{Coin: "bitcoin", Date: "2023-01-01", Price: 1},
	}))

	err := repo.SaveRefresh(ctx, usecase.RefreshBatch{
		FetchedAt:      now,
		PriceCutoff:    entity.DateOf(now.AddDate(0, 0, -365)),
		SnapshotCutoff: now.Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Empty(t, pricesOf(t, gdb, "bitcoin"))
}

func TestPriceRepository_FindRecent(t *testing.T) {
	t.Parallel()

	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBatch(ctx, []entity.PricePoint{
		{Coin: "bitcoin", Date: "2024-01-03", Price: 3},
		{Coin: "bitcoin", Date: "2024-01-01", Price: 1},
		{Coin: "bitcoin", Date: "2024-01-02", Price: 2},
		{Coin: "ethereum", Date: "2024-01-04", Price: 40},
	}))

	tests := []struct {
		name      string
		coin      string
		limit     int
		wantDates []string
	}{
		{"latest two ascending", "bitcoin", 2, []string{"2024-01-02", "2024-01-03"}},
		{"no limit returns all", "bitcoin", 0, []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		{"unknown coin", "solana", 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts, err := repo.FindRecent(ctx, tt.coin, tt.limit)
			require.NoError(t, err)

			dates := make([]string, 0, len(pts))
			for _, p := range pts {
				dates = append(dates, p.Date)
				assert.Equal(t, tt.coin, p.Coin)
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}
}

func TestPriceRepository_LatestQuotes(t *testing.T) {
	t.Parallel()

	repo, _ := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, price := range []float64{100, 200} {
		require.NoError(t, repo.SaveRefresh(ctx, usecase.RefreshBatch{
			Quotes:         []entity.MarketQuote{{Coin: "bitcoin", Price: price, Change24h: float64(i)}},
			FetchedAt:      base.Add(time.Duration(i) * time.Hour),
			PriceCutoff:    "2000-01-01",
			SnapshotCutoff: base.Add(-time.Hour),
		}))
	}

	quotes, err := repo.LatestQuotes(ctx, []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	require.Len(t, quotes, 1)
	assert.Equal(t, "bitcoin", quotes[0].Coin)
	assert.Equal(t, "BTC", quotes[0].Symbol)
	assert.Equal(t, 200.0, quotes[0].Price)
	assert.Equal(t, 1.0, quotes[0].Change24h)
}

func TestPriceRepository_HasAny(t *testing.T) {
	t.Parallel()

	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	has, err := repo.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.UpsertBatch(ctx, []entity.PricePoint{{Coin: "bitcoin", Date: "2024-01-01", Price: 1}}))

	has, err = repo.HasAny(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

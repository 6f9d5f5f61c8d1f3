package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"crypto_backend/internal/feature/coins/domain/entity"
	"crypto_backend/internal/feature/coins/usecase"
)

// mockCoinRepository はCoinRepositoryインターフェースのモック実装です。
type mockCoinRepository struct {
	ListFunc func(ctx context.Context) ([]entity.Coin, error)
}

// List はモックのList関数を呼び出します。
func (m *mockCoinRepository) List(ctx context.Context) ([]entity.Coin, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// TestCoinUsecase_ListCoins はListCoinsメソッドの各種シナリオをテーブル駆動テストで検証します。
func TestCoinUsecase_ListCoins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mockList     func(ctx context.Context) ([]entity.Coin, error)
		expectedLen  int
		expectedTail string
		wantErr      bool
	}{
		{
			name: "success: tracked coins only",
			mockList: func(ctx context.Context) ([]entity.Coin, error) {
				return nil, nil
			},
			expectedLen:  10,
			expectedTail: "chainlink",
		},
		{
			name: "success: stored tracked coins are not duplicated",
			mockList: func(ctx context.Context) ([]entity.Coin, error) {
				return []entity.Coin{{ID: "bitcoin", Symbol: "BTC"}, {ID: "solana", Symbol: "SOL"}}, nil
			},
			expectedLen:  10,
			expectedTail: "chainlink",
		},
		{
			name: "success: extra stored coin is appended",
			mockList: func(ctx context.Context) ([]entity.Coin, error) {
				return []entity.Coin{{ID: "avalanche", Symbol: "AVA"}}, nil
			},
			expectedLen:  11,
			expectedTail: "avalanche",
		},
		{
			name: "error: repository returns error",
			mockList: func(ctx context.Context) ([]entity.Coin, error) {
				return nil, errors.New("database error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := usecase.NewCoinUsecase(&mockCoinRepository{ListFunc: tt.mockList})
			coins, err := uc.ListCoins(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, coins)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, coins, tt.expectedLen)
			assert.Equal(t, "bitcoin", coins[0].ID)
			assert.Equal(t, tt.expectedTail, coins[len(coins)-1].ID)
		})
	}
}

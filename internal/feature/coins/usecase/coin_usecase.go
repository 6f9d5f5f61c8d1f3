// Package usecase implements the business logic for the coin registry.
package usecase

import (
	"context"

	"crypto_backend/internal/feature/coins/domain/entity"
)

// CoinRepository abstracts the persistence layer for coins.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CoinRepository interface {
	List(ctx context.Context) ([]entity.Coin, error)
}

// CoinUsecase provides business logic for coin operations.
type CoinUsecase struct {
	repo CoinRepository
}

// NewCoinUsecase creates a new CoinUsecase with the given repository.
func NewCoinUsecase(r CoinRepository) *CoinUsecase {
	return &CoinUsecase{repo: r}
}

// ListCoins returns the tracked coins followed by any other coin already stored.
func (u *CoinUsecase) ListCoins(ctx context.Context) ([]entity.Coin, error) {
	stored, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := TrackedCoins()
	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[c.ID] = struct{}{}
	}
	for _, c := range stored {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

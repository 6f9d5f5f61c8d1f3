package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/api"
	"crypto_backend/internal/feature/coins/domain/entity"
	"crypto_backend/internal/feature/coins/transport/http/dto"
)

// CoinUsecase はコイン一覧に関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type CoinUsecase interface {
	ListCoins(ctx context.Context) ([]entity.Coin, error)
}

// CoinHandler はコイン一覧に関するHTTPリクエストを処理します。
type CoinHandler struct {
	uc CoinUsecase
}

// NewCoinHandler は新しい CoinHandler を作成します。
func NewCoinHandler(uc CoinUsecase) *CoinHandler {
	return &CoinHandler{uc: uc}
}

// List は対象コインの一覧を返すAPIです。
// Usecaseでエラーが発生した場合は500 Internal Server Errorを返します。
func (h *CoinHandler) List(c *gin.Context) {
	coins, err := h.uc.ListCoins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.CoinItem, 0, len(coins))
	for _, x := range coins {
		out = append(out, dto.CoinItem{ID: x.ID, Symbol: x.Symbol})
	}
	c.JSON(http.StatusOK, out)
}

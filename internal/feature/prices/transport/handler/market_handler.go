// Package handler はpricesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/api"
	coinusecase "crypto_backend/internal/feature/coins/usecase"
	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/prices/transport/http/dto"
	"crypto_backend/internal/feature/prices/usecase"
)

// MarketUsecase はマーケットデータと価格チャートのユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type MarketUsecase interface {
	GetMarkets(ctx context.Context) ([]entity.MarketQuote, error)
	GetHistory(ctx context.Context, coins []string) (entity.HistoryReport, error)
	InitHistory(ctx context.Context) (usecase.InitResult, error)
}

// MarketHandler はマーケットデータのHTTPリクエストを処理します。
type MarketHandler struct {
	uc MarketUsecase
}

// NewMarketHandler は新しい MarketHandler を作成します。
func NewMarketHandler(uc MarketUsecase) *MarketHandler {
	return &MarketHandler{uc: uc}
}

// GetMarkets は対象コインの現在価格・24時間変動率・出来高を返します。
//
// エンドポイント例:
// GET /api/crypto
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	quotes, err := h.uc.GetMarkets(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]dto.MarketItem, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, dto.MarketItem{
			ID:                       q.Coin,
			Name:                     q.Name,
			Symbol:                   q.Symbol,
			CurrentPrice:             q.Price,
			PriceChangePercentage24h: q.Change24h,
			TotalVolume:              q.Volume,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetHistory は指定コインの直近7日分の終値を返します。
//
// エンドポイント例:
// GET /api/history?coins=bitcoin,ethereum
func (h *MarketHandler) GetHistory(c *gin.Context) {
	coins := coinusecase.NormalizeIDs(c.Query("coins"))
	if len(coins) == 0 {
		c.JSON(http.StatusOK, dto.HistoryResponse{Dates: []string{}, Prices: map[string][]*float64{}})
		return
	}

	report, err := h.uc.GetHistory(c.Request.Context(), coins)
	if err != nil {
		c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{Dates: report.Dates, Prices: report.Prices})
}

// InitHistory は対象コインの365日分の履歴を同期的に取り込みます。
//
// エンドポイント例:
// GET /api/init-history
func (h *MarketHandler) InitHistory(c *gin.Context) {
	res, err := h.uc.InitHistory(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error()})
		return
	}

	failed := res.Failed
	if failed == nil {
		failed = []string{}
	}
	c.JSON(http.StatusOK, dto.InitHistoryResponse{
		Status: "ok",
		Days:   res.Days,
		Coins:  res.Coins,
		Failed: failed,
	})
}

// statusFor は外部APIの失敗を502、それ以外を500に対応付けます。
func statusFor(err error) int {
	if errors.Is(err, usecase.ErrFetchUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

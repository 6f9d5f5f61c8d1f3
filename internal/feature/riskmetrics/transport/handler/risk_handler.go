// Package handler はriskmetricsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/api"
	"crypto_backend/internal/feature/riskmetrics/domain/entity"
	"crypto_backend/internal/feature/riskmetrics/transport/http/dto"
	"crypto_backend/internal/feature/riskmetrics/usecase"
)

// TimestampLayout は computed_at の表示形式です（UTC）。
const TimestampLayout = "2006-01-02 15:04:05"

// RiskUsecase はリスク指標のユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type RiskUsecase interface {
	GetRiskMetrics(ctx context.Context, days int) (entity.Snapshot, error)
	Latest(ctx context.Context, days int) (entity.Snapshot, bool, error)
	RunBatch(ctx context.Context) usecase.BatchResult
}

// RiskHandler はリスク指標のHTTPリクエストを処理します。
type RiskHandler struct {
	uc RiskUsecase
}

// NewRiskHandler は新しい RiskHandler を作成します。
func NewRiskHandler(uc RiskUsecase) *RiskHandler {
	return &RiskHandler{uc: uc}
}

// GetRiskMetrics は指定期間のリスク指標を返します。
// 基準コインのデータが不足している場合は400を返します。
//
// エンドポイント例:
// GET /api/risk-metrics?days=30
func (h *RiskHandler) GetRiskMetrics(c *gin.Context) {
	snap, err := h.uc.GetRiskMetrics(c.Request.Context(), daysParam(c))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrInsufficientReferenceData) {
			status = http.StatusBadRequest
		}
		c.JSON(status, api.ErrorResponse{Error: err.Error()})
		return
	}

	res := dto.RiskMetricsResponse{
		Days:       snap.Days,
		ComputedAt: snap.ComputedAt.UTC().Format(TimestampLayout),
		Metrics: dto.RiskSeries{
			Labels:     make([]string, 0, len(snap.Rows)),
			Volatility: make([]float64, 0, len(snap.Rows)),
			Sharpe:     make([]float64, 0, len(snap.Rows)),
			Beta:       make([]float64, 0, len(snap.Rows)),
			VaR:        make([]float64, 0, len(snap.Rows)),
		},
		Table: toRows(snap.Rows),
	}
	for _, r := range snap.Rows {
		res.Metrics.Labels = append(res.Metrics.Labels, r.Symbol)
		res.Metrics.Volatility = append(res.Metrics.Volatility, r.Volatility)
		res.Metrics.Sharpe = append(res.Metrics.Sharpe, r.Sharpe)
		res.Metrics.Beta = append(res.Metrics.Beta, r.Beta)
		res.Metrics.VaR = append(res.Metrics.VaR, r.VaR)
	}
	c.JSON(http.StatusOK, res)
}

// GetLatest は再計算せずに直近の保存済みスナップショットを返します。
//
// エンドポイント例:
// GET /api/risk-metrics-latest?days=30
func (h *RiskHandler) GetLatest(c *gin.Context) {
	days := usecase.NormalizeDays(daysParam(c))
	snap, ok, err := h.uc.Latest(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, LatestResponse(snap, ok, days))
}

// LatestResponse は保存済みスナップショットをレスポンスDTOに変換します。
// ok が false の場合は空のテーブルと null の computed_at を返します。
func LatestResponse(snap entity.Snapshot, ok bool, days int) dto.LatestRiskResponse {
	if !ok {
		return dto.LatestRiskResponse{Table: []dto.RiskRow{}, Days: days}
	}
	computedAt := snap.ComputedAt.UTC().Format(TimestampLayout)
	return dto.LatestRiskResponse{
		Table:      toRows(snap.Rows),
		ComputedAt: &computedAt,
		Days:       days,
	}
}

// RunBatch は全期間のリスク指標を再計算して保存します。
//
// エンドポイント例:
// GET /api/risk-metrics-batch
func (h *RiskHandler) RunBatch(c *gin.Context) {
	res := h.uc.RunBatch(c.Request.Context())

	slots := make(map[string]dto.SlotResponse, len(res.Slots))
	for _, s := range res.Slots {
		key := strconv.Itoa(s.Days)
		if s.Err != nil {
			slots[key] = dto.SlotResponse{Error: s.Err.Error()}
			continue
		}
		rows := s.Rows
		slots[key] = dto.SlotResponse{Rows: &rows}
	}
	c.JSON(http.StatusOK, dto.RiskBatchResponse{
		Status:     "ok",
		ComputedAt: res.ComputedAt.UTC().Format(TimestampLayout),
		Slots:      slots,
	})
}

// daysParam は days クエリを整数として読み取ります。不正な値は DefaultWindow になります。
func daysParam(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(entity.DefaultWindow)))
	if err != nil {
		return entity.DefaultWindow
	}
	return days
}

func toRows(rows []entity.CoinMetrics) []dto.RiskRow {
	out := make([]dto.RiskRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.RiskRow{
			Coin:       r.Symbol,
			CoinName:   r.Coin,
			Volatility: r.Volatility,
			Sharpe:     r.Sharpe,
			Beta:       r.Beta,
			VaR:        r.VaR,
			Risk:       string(r.Risk),
		})
	}
	return out
}

// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/api"
)

const pingTimeout = 2 * time.Second

// Pinger はストアの疎通確認です。*sql.DB が満たします。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler は /healthz を処理します。
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler は新しい HealthHandler を作成します。store が nil の場合はプロセスの生存のみを返します。
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// ストアに到達できない場合は503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	status := http.StatusOK
	body := api.StatusResponse{Status: "ok"}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.store.PingContext(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			status = http.StatusServiceUnavailable
			body = api.StatusResponse{Status: "unavailable"}
		}
	}

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(status)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(status, body)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/app/di"
	"crypto_backend/internal/app/router"
	"crypto_backend/internal/app/startup"
	"crypto_backend/internal/platform/db"
	"crypto_backend/internal/platform/logging"
	infraredis "crypto_backend/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .envを読み込む
	config.LoadDotEnv()
	if err := logging.Init(logging.LoadConfig()); err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := di.OpenStore(db.LoadConfigFromEnv())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfig())
	if err != nil {
		slog.Warn("Redis unavailable. Running with in-process cache.")
		rdb = nil
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	market, limiter := di.NewMarket()
	app := di.NewApp(cfg, gdb, market, limiter, di.NewCache(rdb))

	// 初回の履歴取得と日次リフレッシュ
	boot := startup.NewBootstrapper(ctx, app.History, app.Coins)
	boot.Start()

	// ルータ生成
	r := router.NewRouter(app.HealthHandler, app.CoinHandler, app.MarketHandler, app.RiskHandler, boot.Middleware())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

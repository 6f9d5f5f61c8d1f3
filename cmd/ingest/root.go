package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/app/di"
	"crypto_backend/internal/platform/db"
	"crypto_backend/internal/platform/logging"
)

var rootCMD = &cobra.Command{
	Use:   "ingest",
	Short: "Crypto price ingestion and risk snapshot tool",
	Long: `A CLI for maintaining the price store outside the HTTP server.
It can backfill daily history from CoinGecko, refresh the market snapshot,
compute risk metric snapshots and print the latest stored snapshot.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		return logging.Init(logging.LoadConfig())
	},
}

// Execute はルートコマンドを実行します。SIGINT/SIGTERMで処理中のコマンドをキャンセルします。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCMD.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCMD.AddCommand(backfillCMD, refreshCMD, computeCMD, latestCMD)
}

// newApp はCLI用にストアとユースケースを組み立てます。CLIではインメモリキャッシュを使います。
func newApp() (*di.App, error) {
	gdb, err := di.OpenStore(db.LoadConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	market, limiter := di.NewMarket()
	slog.Debug("store ready")
	return di.NewApp(config.Load(), gdb, market, limiter, di.NewCache(nil)), nil
}

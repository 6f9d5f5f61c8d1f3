package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"crypto_backend/internal/app/startup"
	coinusecase "crypto_backend/internal/feature/coins/usecase"
	riskentity "crypto_backend/internal/feature/riskmetrics/domain/entity"
	riskhandler "crypto_backend/internal/feature/riskmetrics/transport/handler"
	riskusecase "crypto_backend/internal/feature/riskmetrics/usecase"
	"crypto_backend/internal/shared/outcome"
)

var (
	backfillDays  int
	backfillCoins string
	riskDays      int
)

var backfillCMD = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch daily price history from CoinGecko into the store",
	Long:  `Fetch up to --days of daily closing prices for each coin and upsert them. Failures are reported per coin and never stop the other coins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		coins := selectCoins(backfillCoins, app.Coins)

		slog.Info("starting backfill", "days", backfillDays, "coins", len(coins))
		results := app.History.Backfill(cmd.Context(), coins, backfillDays)
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s failed: %v\n", r.Coin, r.Err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d days\n", r.Coin, r.Value)
		}
		if len(outcome.Succeeded(results)) == 0 && len(results) > 0 {
			return errors.New("backfill failed for every coin")
		}
		return nil
	},
}

var refreshCMD = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the market snapshot and prune old rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		results, err := app.History.RefreshSnapshotAndCleanup(cmd.Context(), app.Coins)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d coins, %d failed %v\n",
			len(outcome.Succeeded(results)), len(outcome.Failed(results)), outcome.Coins(outcome.Failed(results)))
		return nil
	},
}

var computeCMD = &cobra.Command{
	Use:   "compute",
	Short: "Compute and store risk metric snapshots",
	Long:  `Compute risk metrics for --days and store them as a new snapshot batch. With --days 0 every supported window is computed with one shared timestamp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		if riskDays == 0 {
			res := app.Risk.RunBatch(cmd.Context())
			failed := 0
			for _, slot := range res.Slots {
				if slot.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%4dd failed: %v\n", slot.Days, slot.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%4dd %d rows\n", slot.Days, slot.Rows)
			}
			if failed == len(res.Slots) {
				return errors.New("every window failed")
			}
			return nil
		}

		snap, err := app.Risk.GetRiskMetrics(cmd.Context(), riskDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%dd %d rows (batch %s)\n", snap.Days, len(snap.Rows), snap.BatchID)
		return nil
	},
}

var latestCMD = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest stored risk snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		days := riskusecase.NormalizeDays(riskDays)
		snap, ok, err := app.Risk.Latest(cmd.Context(), days)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(riskhandler.LatestResponse(snap, ok, days))
	},
}

func init() {
	backfillCMD.Flags().IntVar(&backfillDays, "days", startup.BackfillDays, "number of days of history to fetch")
	backfillCMD.Flags().StringVar(&backfillCoins, "coins", "", "comma separated coin ids (default: tracked coins)")
	computeCMD.Flags().IntVar(&riskDays, "days", riskentity.DefaultWindow, "window in days (7, 30, 90, 365; 0 for all)")
	latestCMD.Flags().IntVar(&riskDays, "days", riskentity.DefaultWindow, "window in days (7, 30, 90, 365)")
}

// selectCoins は --coins が指定されていればそれを、なければ対象コインを返します。
func selectCoins(csv string, tracked []string) []string {
	if ids := coinusecase.NormalizeIDs(csv); len(ids) > 0 {
		return ids
	}
	return tracked
}

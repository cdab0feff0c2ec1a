package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/monitoring"
)

var batchAll bool

var batchCmd = &cobra.Command{
	Use:   "batch [vertical]",
	Short: "Run a batch aggregation pass",
	Long:  "Re-aggregates the stored products of one vertical (or all verticals with --all) and re-indexes the results.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		if !batchAll && len(args) == 0 {
			return eris.New("a vertical id is required unless --all is set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		var runErr error
		if batchAll {
			runErr = env.Facade.BatchAll(ctx)
		} else {
			runErr = env.Facade.BatchVertical(ctx, args[0])
		}

		// Stop drains the queue, so the summary reflects what was stored.
		env.Close(ctx)
		logBatchSummary(env.Metrics.Collect())
		return runErr
	},
}

func logBatchSummary(snap monitoring.Snapshot) {
	zap.L().Info("batch run complete",
		zap.Int64("passes", snap.BatchPasses),
		zap.Int64("products_stored", snap.ProductsStored),
		zap.Int64("store_failures", snap.StoreFailures),
		zap.Int64("dead_lettered", snap.DeadLettered),
	)
}

func init() {
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "run a pass over every configured vertical")
	rootCmd.AddCommand(batchCmd)
}

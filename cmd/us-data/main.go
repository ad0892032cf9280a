package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elvin-stowell/csds-312-final-project/internal/app"
	"github.com/elvin-stowell/csds-312-final-project/internal/slogx"
)

var (
	configPath    string
	freshUniverse bool
)

var rootCmd = &cobra.Command{
	Use:   "us-data",
	Short: "US equity prices and fundamentals collector",
	Long: `Lists the US stock universe from Polygon, keeps companies at or above the
market capitalization threshold, and writes their daily prices and quarterly
fundamentals in numbered batches that can be merged into two tables.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl the universe batch by batch, then consolidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			slog.Info("using data provider", "provider", a.DP.GetName())
			slog.Info("save dir", "dir", a.Config.SaveBaseDir(), "format", a.Config.SaveFormat,
				"manifest", a.Config.ManifestPath)
			return a.RunFlow(ctx, freshUniverse)
		})
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge batch artifacts into merged_price_data and merged_fundamentals_data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			if !cmd.Flags().Changed("from") {
				from = a.Config.ConsolidateFrom
			}
			if !cmd.Flags().Changed("to") {
				to = a.Config.ConsolidateTo
			}
			res, err := a.Consolidate(ctx, from, to)
			if err != nil {
				return err
			}
			slog.Info("merged tables", "prices", res.Written.PricePath, "fundamentals", res.Written.FundamentalsPath)
			return nil
		})
	},
}

var universeCmd = &cobra.Command{
	Use:   "universe [output-file]",
	Short: "List the universe and save it as a ticker file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "tickers.json"
		if len(args) == 1 {
			out = args[0]
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.DumpUniverse(ctx, out, freshUniverse)
			if err != nil {
				return err
			}
			slog.Info("tickers saved", "path", out, "count", n)
			return nil
		})
	},
}

func init() {
	slog.SetDefault(slogx.NewDefault("info"))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env overrides it)")
	rootCmd.PersistentFlags().BoolVar(&freshUniverse, "fresh-universe", false, "discard the universe listing checkpoint")
	consolidateCmd.Flags().Int("from", 1, "first batch id")
	consolidateCmd.Flags().Int("to", 0, "last batch id (0 = last known batch)")

	rootCmd.AddCommand(runCmd, consolidateCmd, universeCmd)
}

// withApp builds the App, installs the configured logger and runs fn.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	a, cleanup, err := InitializeApp(app.ConfigPath(configPath))
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return err
	}
	defer cleanup()

	slog.SetDefault(slogx.New(os.Stderr, a.Config.LogLevel, a.Config.LogFormat))
	return fn(cmd.Context(), a)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("stopped by signal")
			return
		}
		stop()
		os.Exit(1)
	}
}

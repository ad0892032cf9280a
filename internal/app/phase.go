package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/elvin-stowell/csds-312-final-project/internal/consolidate"
	"github.com/elvin-stowell/csds-312-final-project/internal/crawl"
	"github.com/elvin-stowell/csds-312-final-project/internal/manifest"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
)

// App holds application dependencies built by Wire.
type App struct {
	Config       *Config
	DP           provider.DataProvider
	Manifest     *manifest.Store
	Orchestrator *crawl.Orchestrator
	Consolidator *consolidate.Consolidator
}

// Symbols lists the universe and applies the configured slice. fresh drops
// the listing checkpoint first so the listing starts from page one.
func (a *App) Symbols(ctx context.Context, fresh bool) ([]string, error) {
	if fresh {
		if err := a.Manifest.Clear(ctx); err != nil {
			return nil, err
		}
		slog.Info("universe checkpoint cleared")
	}
	all, err := a.DP.ListSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	symbols := a.Config.SliceUniverse(all)
	slog.Info("got tickers", "listed", len(all), "selected", len(symbols),
		"slice_start", a.Config.SliceStart, "slice_end", a.Config.SliceEnd)
	return symbols, nil
}

// RunOnce lists, crawls and consolidates. Without an explicit
// ConsolidateTo the merge runs through the last batch planned this run.
func (a *App) RunOnce(ctx context.Context, fresh bool) error {
	symbols, err := a.Symbols(ctx, fresh)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		slog.Warn("empty universe, nothing to do")
		return nil
	}

	if _, err := a.Orchestrator.Run(ctx, symbols); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	to := a.Config.ConsolidateTo
	if to == 0 {
		batches := crawl.Plan(symbols, a.Config.BatchSize, a.Config.StartBatchID)
		to = batches[len(batches)-1].ID
	}
	_, err = a.Consolidate(ctx, a.Config.ConsolidateFrom, to)
	return err
}

// Consolidate merges batch artifacts from..to; to <= 0 means through the
// last known batch.
func (a *App) Consolidate(ctx context.Context, from, to int) (consolidate.Result, error) {
	res, err := a.Consolidator.Run(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("consolidate: %w", err)
	}
	if res.Written.PricePath == "" && res.Written.FundamentalsPath == "" {
		slog.Warn("no rows to consolidate", "from", from, "to", to)
	}
	return res, nil
}

// DumpUniverse writes the selected symbols to path for later runs with
// TICKERS_FILE.
func (a *App) DumpUniverse(ctx context.Context, path string, fresh bool) (int, error) {
	symbols, err := a.Symbols(ctx, fresh)
	if err != nil {
		return 0, err
	}
	if err := polygon.SaveTickersToFile(symbols, path); err != nil {
		return 0, err
	}
	return len(symbols), nil
}

// RunFlow runs once, then on Config.Schedule until ctx is done. An
// overlapping trigger is skipped while a run is still in progress.
func (a *App) RunFlow(ctx context.Context, fresh bool) error {
	if a.Config.Schedule == "" {
		return a.RunOnce(ctx, fresh)
	}

	logger := cron.VerbosePrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(a.Config.Schedule, func() {
		if err := a.RunOnce(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register schedule %q: %w", a.Config.Schedule, err)
	}

	if err := a.RunOnce(ctx, fresh); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.Error("initial run failed", "error", err)
	}

	c.Start()
	slog.Info("scheduler started", "schedule", a.Config.Schedule, "next_run", c.Entries()[0].Next.Format("2006-01-02 15:04"))
	<-ctx.Done()
	slog.Info("received signal, graceful shutdown")
	<-c.Stop().Done()
	return nil
}

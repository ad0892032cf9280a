// Package crawl drives the batch loop: it splits the universe into numbered
// batches, fetches each symbol's fundamentals and prices, accumulates them
// in per-batch tables and hands finished batches to the writer.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/elvin-stowell/csds-312-final-project/internal/fetch"
	"github.com/elvin-stowell/csds-312-final-project/internal/manifest"
	"github.com/elvin-stowell/csds-312-final-project/internal/model"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
	"github.com/elvin-stowell/csds-312-final-project/internal/ratelimit"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// Fetcher returns one symbol's rows; an error means no contribution.
type Fetcher interface {
	Fundamentals(ctx context.Context, symbol string) ([]model.FundamentalsRecord, error)
	Prices(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
}

// Writer persists a finished batch.
type Writer interface {
	Write(batchID int, prices []model.PriceBar, fundamentals []model.FundamentalsRecord) (saver.Written, error)
}

// Manifest records runs and completed batches. *manifest.Store implements it.
type Manifest interface {
	StartRun(ctx context.Context, symbols int) (string, error)
	FinishRun(ctx context.Context, runID, status string) error
	RecordBatch(ctx context.Context, b manifest.BatchRecord) error
	IsCompleted(ctx context.Context, id int) (bool, error)
}

// Options configures a run.
type Options struct {
	BatchSize    int
	StartBatchID int
	From, To     time.Time // inclusive price history range
	// SkipCompleted skips batch ids the manifest already marks complete.
	SkipCompleted bool
	// Format is recorded in the manifest next to each batch.
	Format string
	// ReportDir receives .lastrun.success.json and .lastrun.failed.json; empty disables.
	ReportDir         string
	HeartbeatInterval time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID            string
	Batches          int // written or empty batches processed this run
	SkippedBatches   int // already complete in the manifest
	PriceRows        int
	FundamentalsRows int
	Contributed      []string
	Skipped          []SkipEntry
}

// Orchestrator runs the batch loop. manifest may be nil.
type Orchestrator struct {
	fetcher  Fetcher
	writer   Writer
	manifest Manifest
	pacer    ratelimit.Pacer
	opts     Options
}

func NewOrchestrator(f Fetcher, w Writer, m Manifest, p ratelimit.Pacer, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.StartBatchID <= 0 {
		opts.StartBatchID = 1
	}
	if p == nil {
		p = ratelimit.NoPacer{}
	}
	return &Orchestrator{fetcher: f, writer: w, manifest: m, pacer: p, opts: opts}
}

// Run processes symbols batch by batch. Per-symbol failures never stop the
// loop. Cancellation stops before the next symbol and leaves the current
// batch unwritten; a write failure aborts the run.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (Summary, error) {
	var sum Summary
	batches := Plan(symbols, o.opts.BatchSize, o.opts.StartBatchID)
	slog.Info("batch plan", "symbols", len(symbols), "batches", len(batches),
		"batch_size", o.opts.BatchSize, "first_batch", o.opts.StartBatchID)

	if o.manifest != nil {
		id, err := o.manifest.StartRun(ctx, len(symbols))
		if err != nil {
			slog.Warn("could not record run start", "error", err)
		}
		sum.RunID = id
	}

	prog := &progress{totalSymbols: len(symbols)}
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go runHeartbeat(hbCtx, o.opts.HeartbeatInterval, prog, slog.Default())

	defer func() {
		if o.opts.ReportDir == "" || (len(sum.Contributed) == 0 && len(sum.Skipped) == 0) {
			return
		}
		if err := writeRunReport(o.opts.ReportDir, sum.Contributed, sum.Skipped); err != nil {
			slog.Warn("could not write run report", "error", err)
		} else {
			slog.Info("run report saved", "contributed", len(sum.Contributed), "skipped", len(sum.Skipped))
		}
	}()

	prices := NewTable(KindPrices, func(b model.PriceBar) string { return b.Symbol })
	fundamentals := NewTable(KindFundamentals, func(r model.FundamentalsRecord) string { return r.Symbol })

	var runErr error
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if o.opts.SkipCompleted && o.completed(ctx, b.ID) {
			slog.Info("batch already complete, skipping", "batch", b.ID)
			sum.SkippedBatches++
			continue
		}

		prices.Reset()
		fundamentals.Reset()
		if err := o.runBatch(ctx, b, prices, fundamentals, prog, &sum); err != nil {
			runErr = err
			break
		}
	}

	o.finish(sum.RunID, runErr)
	slog.Info("run done", "batches", sum.Batches, "skipped_batches", sum.SkippedBatches,
		"price_rows", sum.PriceRows, "fundamentals_rows", sum.FundamentalsRows,
		"contributed", len(sum.Contributed), "skipped", len(sum.Skipped))
	if len(sum.Skipped) > 0 {
		logReasonSummary(sum.Skipped)
	}
	return sum, runErr
}

func (o *Orchestrator) runBatch(ctx context.Context, b Batch, prices *Table[model.PriceBar], fundamentals *Table[model.FundamentalsRecord], prog *progress, sum *Summary) error {
	prog.batchStarted(b.ID)
	slog.Info("batch start", "batch", b.ID, "symbols", len(b.Symbols))

	skip := func(symbol, kind string, err error) {
		sum.Skipped = append(sum.Skipped, SkipEntry{Ticker: symbol, Batch: b.ID, Kind: kind, Class: classOf(err), Reason: reasonOf(err)})
	}

	for _, symbol := range b.Symbols {
		if err := ctx.Err(); err != nil {
			slog.Warn("run cancelled mid-batch, batch not written", "batch", b.ID, "ticker", symbol)
			return err
		}
		contributed := false

		recs, err := o.fetcher.Fundamentals(ctx, symbol)
		if err != nil {
			skip(symbol, fundamentals.Kind(), err)
		} else if merr := fundamentals.Append(symbol, recs); merr != nil {
			slog.Error("fundamentals merge rejected", "ticker", symbol, "batch", b.ID, "error", merr)
			skip(symbol, fundamentals.Kind(), merr)
		} else {
			contributed = true
		}

		bars, err := o.fetcher.Prices(ctx, symbol, o.opts.From, o.opts.To)
		if err != nil {
			skip(symbol, prices.Kind(), err)
		} else if merr := prices.Append(symbol, bars); merr != nil {
			slog.Error("price merge rejected", "ticker", symbol, "batch", b.ID, "error", merr)
			skip(symbol, prices.Kind(), merr)
		} else {
			contributed = true
		}

		if contributed {
			sum.Contributed = append(sum.Contributed, symbol)
			slog.Debug("symbol ok", "ticker", symbol, "batch", b.ID, "bars", len(bars), "periods", len(recs))
		}
		prog.symbolDone()

		if err := o.pacer.AfterSymbol(ctx); err != nil {
			return err
		}
	}

	written, err := o.writer.Write(b.ID, prices.Rows(), fundamentals.Rows())
	if err != nil {
		return fmt.Errorf("write batch %d: %w", b.ID, err)
	}
	sum.Batches++
	sum.PriceRows += prices.Len()
	sum.FundamentalsRows += fundamentals.Len()
	prog.batchDone(prices.Len(), fundamentals.Len())
	slog.Info("batch done", "batch", b.ID, "price_rows", prices.Len(), "fundamentals_rows", fundamentals.Len())

	if o.manifest != nil {
		rec := manifest.BatchRecord{
			ID:               b.ID,
			RunID:            sum.RunID,
			Symbols:          len(b.Symbols),
			PriceRows:        prices.Len(),
			FundamentalsRows: fundamentals.Len(),
			PricePath:        written.PricePath,
			FundamentalsPath: written.FundamentalsPath,
			Format:           o.opts.Format,
		}
		if err := o.manifest.RecordBatch(ctx, rec); err != nil {
			slog.Warn("could not record batch", "batch", b.ID, "error", err)
		}
	}

	return o.pacer.AfterBatch(ctx)
}

func (o *Orchestrator) completed(ctx context.Context, id int) bool {
	if o.manifest == nil {
		return false
	}
	ok, err := o.manifest.IsCompleted(ctx, id)
	if err != nil {
		slog.Warn("manifest lookup failed, processing batch", "batch", id, "error", err)
		return false
	}
	return ok
}

func (o *Orchestrator) finish(runID string, runErr error) {
	if o.manifest == nil || runID == "" {
		return
	}
	status := manifest.StatusCompleted
	if runErr != nil {
		status = manifest.StatusFailed
	}
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.manifest.FinishRun(ctx, runID, status); err != nil {
		slog.Warn("could not record run end", "run", runID, "error", err)
	}
}

// classOf maps a skip cause to a category that does not mention the symbol.
func classOf(err error) string {
	var (
		merr *MergeError
		terr *polygon.TransportError
	)
	switch {
	case errors.As(err, &merr):
		return "merge rejected"
	case errors.Is(err, fetch.ErrIneligible):
		return "ineligible"
	case errors.Is(err, fetch.ErrNoData):
		return "no data"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &terr):
		if terr.StatusCode == 0 {
			return terr.Endpoint + ": network error"
		}
		return fmt.Sprintf("%s: status %d", terr.Endpoint, terr.StatusCode)
	default:
		return "other"
	}
}

func reasonOf(err error) string {
	var merr *MergeError
	if errors.As(err, &merr) {
		return "merge rejected: " + merr.Reason
	}
	return err.Error()
}

func logReasonSummary(skipped []SkipEntry) {
	counts := reasonCounts(skipped)
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return counts[reasons[i]] > counts[reasons[j]] })
	if len(reasons) > 5 {
		reasons = reasons[:5]
	}
	for _, r := range reasons {
		slog.Info("summary skipped", "class", r, "count", counts[r])
	}
	slog.Debug("summary skipped detail", "entries", joinSkipReasons(skipped))
}

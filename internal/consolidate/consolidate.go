// Package consolidate merges per-batch artifacts into one price table and
// one fundamentals table.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/elvin-stowell/csds-312-final-project/internal/crawl"
	"github.com/elvin-stowell/csds-312-final-project/internal/model"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// Writer persists the merged tables. *saver.BatchWriter implements it.
type Writer interface {
	WriteMerged(prices []model.PriceBar, fundamentals []model.FundamentalsRecord) (saver.Written, error)
}

// Result describes one consolidation.
type Result struct {
	Batches          int
	PriceRows        int
	FundamentalsRows int
	Written          saver.Written
}

// Consolidator concatenates artifacts in batch-id order, then row order,
// without deduplication.
type Consolidator struct {
	source ArtifactSource
	loader saver.TableSaver
	writer Writer
}

func New(source ArtifactSource, loader saver.TableSaver, writer Writer) *Consolidator {
	return &Consolidator{source: source, loader: loader, writer: writer}
}

// Run merges batches from..to inclusive; to <= 0 means through the last
// batch the source knows of. Missing or unreadable artifacts contribute zero
// rows. Each merged table is written only when non-empty.
func (c *Consolidator) Run(ctx context.Context, from, to int) (Result, error) {
	var res Result
	if to <= 0 {
		last, err := c.source.LastID(ctx)
		if err != nil {
			return res, fmt.Errorf("find last batch: %w", err)
		}
		if last < from {
			slog.Info("no batches to consolidate", "from", from, "last", last)
			return res, nil
		}
		to = last
	}
	if from > to {
		return res, fmt.Errorf("consolidate: empty batch range %d..%d", from, to)
	}
	artifacts, err := c.source.Artifacts(ctx, from, to)
	if err != nil {
		return res, fmt.Errorf("discover artifacts: %w", err)
	}

	prices := crawl.NewTable[model.PriceBar](crawl.KindPrices, nil)
	fundamentals := crawl.NewTable[model.FundamentalsRecord](crawl.KindFundamentals, nil)

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		label := fmt.Sprintf("batch %d", a.BatchID)
		contributed := false

		if a.PricePath != "" {
			rows, ok := load(a.PricePath, c.loader.LoadPrices)
			if ok {
				if err := prices.Append(label, rows); err != nil {
					slog.Warn("price artifact rejected", "batch", a.BatchID, "error", err)
				} else {
					contributed = contributed || len(rows) > 0
				}
			}
		}
		if a.FundamentalsPath != "" {
			rows, ok := load(a.FundamentalsPath, c.loader.LoadFundamentals)
			if ok {
				if err := fundamentals.Append(label, rows); err != nil {
					slog.Warn("fundamentals artifact rejected", "batch", a.BatchID, "error", err)
				} else {
					contributed = contributed || len(rows) > 0
				}
			}
		}
		if contributed {
			res.Batches++
		}
	}

	res.PriceRows = prices.Len()
	res.FundamentalsRows = fundamentals.Len()
	written, err := c.writer.WriteMerged(prices.Rows(), fundamentals.Rows())
	if err != nil {
		return res, fmt.Errorf("write merged tables: %w", err)
	}
	res.Written = written
	slog.Info("consolidated", "from", from, "to", to, "batches", res.Batches,
		"price_rows", res.PriceRows, "fundamentals_rows", res.FundamentalsRows)
	return res, nil
}

func load[T any](path string, fn func(string) ([]T, error)) ([]T, bool) {
	rows, err := fn(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("artifact missing", "path", path)
		} else {
			slog.Warn("artifact unreadable, skipping", "path", path, "error", err)
		}
		return nil, false
	}
	return rows, true
}

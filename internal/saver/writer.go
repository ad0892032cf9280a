package saver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// PriceArtifactName returns the file name of a batch's price table.
func PriceArtifactName(batchID int, ext string) string {
	return fmt.Sprintf("price_batch_%d.%s", batchID, ext)
}

// FundamentalsArtifactName returns the file name of a batch's fundamentals table.
func FundamentalsArtifactName(batchID int, ext string) string {
	return fmt.Sprintf("fundamentals_batch_%d.%s", batchID, ext)
}

// MergedPriceName returns the file name of the consolidated price table.
func MergedPriceName(ext string) string { return "merged_price_data." + ext }

// MergedFundamentalsName returns the file name of the consolidated fundamentals table.
func MergedFundamentalsName(ext string) string { return "merged_fundamentals_data." + ext }

// Written lists the artifacts a write produced. A path is empty when its
// table had no rows and nothing was written.
type Written struct {
	PricePath        string
	FundamentalsPath string
}

// BatchWriter persists the two tables of one batch into Dir.
type BatchWriter struct {
	Dir   string
	Saver TableSaver
}

func NewBatchWriter(dir string, s TableSaver) *BatchWriter {
	return &BatchWriter{Dir: dir, Saver: s}
}

// Write saves each table that has at least one row, replacing any previous
// artifact of the same batch. Files appear atomically.
func (w *BatchWriter) Write(batchID int, prices []model.PriceBar, fundamentals []model.FundamentalsRecord) (Written, error) {
	var out Written
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}
	ext := w.Saver.Extension()

	if len(prices) > 0 {
		p := filepath.Join(w.Dir, PriceArtifactName(batchID, ext))
		if err := atomicSave(p, func(tmp string) error { return w.Saver.SavePrices(prices, tmp) }); err != nil {
			return out, fmt.Errorf("batch %d prices: %w", batchID, err)
		}
		out.PricePath = p
		slog.Info("saved price batch", "batch", batchID, "rows", len(prices), "path", p)
	}
	if len(fundamentals) > 0 {
		p := filepath.Join(w.Dir, FundamentalsArtifactName(batchID, ext))
		if err := atomicSave(p, func(tmp string) error { return w.Saver.SaveFundamentals(fundamentals, tmp) }); err != nil {
			return out, fmt.Errorf("batch %d fundamentals: %w", batchID, err)
		}
		out.FundamentalsPath = p
		slog.Info("saved fundamentals batch", "batch", batchID, "rows", len(fundamentals), "path", p)
	}
	return out, nil
}

// WriteMerged saves the consolidated tables, each only when non-empty.
func (w *BatchWriter) WriteMerged(prices []model.PriceBar, fundamentals []model.FundamentalsRecord) (Written, error) {
	var out Written
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return out, fmt.Errorf("create output dir: %w", err)
	}
	ext := w.Saver.Extension()

	if len(prices) > 0 {
		p := filepath.Join(w.Dir, MergedPriceName(ext))
		if err := atomicSave(p, func(tmp string) error { return w.Saver.SavePrices(prices, tmp) }); err != nil {
			return out, fmt.Errorf("merged prices: %w", err)
		}
		out.PricePath = p
	}
	if len(fundamentals) > 0 {
		p := filepath.Join(w.Dir, MergedFundamentalsName(ext))
		if err := atomicSave(p, func(tmp string) error { return w.Saver.SaveFundamentals(fundamentals, tmp) }); err != nil {
			return out, fmt.Errorf("merged fundamentals: %w", err)
		}
		out.FundamentalsPath = p
	}
	return out, nil
}

// atomicSave writes through a temp file in the same directory and renames it
// over path.
func atomicSave(path string, save func(tmp string) error) error {
	tmp := path + ".tmp"
	if err := save(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

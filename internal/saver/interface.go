package saver

import (
	"strings"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// TableSaver reads and writes the two tabular datasets in one file format.
// Batch writing and consolidation depend only on this interface.
type TableSaver interface {
	Extension() string
	SavePrices(rows []model.PriceBar, path string) error
	SaveFundamentals(rows []model.FundamentalsRecord, path string) error
	LoadPrices(path string) ([]model.PriceBar, error)
	LoadFundamentals(path string) ([]model.FundamentalsRecord, error)
}

// NewTableSaver creates implementation by format (csv, parquet, json).
// Returns nil if format not supported.
func NewTableSaver(format string) TableSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

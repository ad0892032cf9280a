package provider

import (
	"context"
	"time"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// DataProvider is the abstraction used by the application when accessing a data source.
// Implementations own their transport and must release it in Close.
type DataProvider interface {
	GetName() string
	// ListSymbols returns the ordered universe of symbols to process.
	ListSymbols(ctx context.Context) ([]string, error)
	MarketCap(ctx context.Context, symbol string) (null.Float, error)
	Financials(ctx context.Context, symbol string) ([]model.FundamentalsRecord, error)
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
	Close() error
}

// Package fetch gates each symbol on market cap and pulls its quarterly
// fundamentals and daily price history, tagging rows with the cap snapshot
// the decision was made on.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elvin-stowell/csds-312-final-project/internal/capgate"
	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

var (
	// ErrIneligible means the symbol's market cap is absent or below the threshold.
	ErrIneligible = errors.New("below market cap threshold")
	// ErrNoData means the provider answered with zero rows.
	ErrNoData = errors.New("no data")
)

// Gate decides eligibility. *capgate.Gate implements it.
type Gate interface {
	IsEligible(ctx context.Context, symbol string) capgate.Decision
}

// FinancialsSource returns quarterly periods without market cap.
type FinancialsSource interface {
	Financials(ctx context.Context, symbol string) ([]model.FundamentalsRecord, error)
}

// BarsSource returns daily bars without market cap.
type BarsSource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
}

// Fetcher combines the gate with both data sources.
//
// A non-nil error from Fundamentals or Prices always comes with nil rows and
// only explains why the symbol contributed nothing: ErrIneligible, ErrNoData
// or the wrapped provider failure. Callers treat every error as "no
// contribution" and carry on with the next symbol.
type Fetcher struct {
	gate       Gate
	financials FinancialsSource
	bars       BarsSource
}

func New(gate Gate, financials FinancialsSource, bars BarsSource) *Fetcher {
	return &Fetcher{gate: gate, financials: financials, bars: bars}
}

// Fundamentals returns every reported quarterly period of an eligible
// symbol, each carrying the market cap snapshot.
func (f *Fetcher) Fundamentals(ctx context.Context, symbol string) ([]model.FundamentalsRecord, error) {
	d := f.gate.IsEligible(ctx, symbol)
	if !d.Eligible {
		return nil, ErrIneligible
	}

	records, err := f.financials.Financials(ctx, symbol)
	if err != nil {
		slog.Warn("fundamentals fetch failed", "ticker", symbol, "error", err)
		return nil, fmt.Errorf("fundamentals %s: %w", symbol, err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	for i := range records {
		records[i].MarketCap = d.MarketCap
	}
	return records, nil
}

// Prices returns the daily bars of an eligible symbol over [from, to],
// oldest first, each carrying the market cap snapshot.
func (f *Fetcher) Prices(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	d := f.gate.IsEligible(ctx, symbol)
	if !d.Eligible {
		return nil, ErrIneligible
	}

	bars, err := f.bars.DailyBars(ctx, symbol, from, to)
	if err != nil {
		slog.Warn("price fetch failed", "ticker", symbol, "error", err)
		return nil, fmt.Errorf("prices %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	for i := range bars {
		bars[i].MarketCap = d.MarketCap
	}
	return bars, nil
}

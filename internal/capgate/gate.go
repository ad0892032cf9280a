// Package capgate decides whether a security is large enough to process,
// based on its current market capitalization.
package capgate

import (
	"context"
	"log/slog"
	"time"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// DefaultThreshold is the minimum market cap (inclusive) of an eligible security.
const DefaultThreshold = 500_000_000

// CapSource looks up the current market capitalization of a symbol.
type CapSource interface {
	MarketCap(ctx context.Context, symbol string) (null.Float, error)
}

// Decision is the outcome of one eligibility check. MarketCap is the snapshot
// the decision was made on and is what fetchers attach to their rows.
type Decision struct {
	Eligible  bool
	MarketCap null.Float
}

// Gate applies the threshold to market caps from a CapSource, optionally
// through a snapshot cache shared by every caller in a run.
type Gate struct {
	src       CapSource
	threshold float64
	cache     Cache
	now       func() time.Time
}

// New creates a gate. cache may be nil to look up on every call.
func New(src CapSource, threshold float64, cache Cache) *Gate {
	return &Gate{src: src, threshold: threshold, cache: cache, now: time.Now}
}

// Threshold returns the configured minimum market cap.
func (g *Gate) Threshold() float64 { return g.threshold }

// Snapshot returns the market cap of symbol. A failed lookup is logged and
// reported as an absent cap; it is not cached so a later call may succeed.
func (g *Gate) Snapshot(ctx context.Context, symbol string) model.CapSnapshot {
	if g.cache != nil {
		if snap, ok := g.cache.Get(ctx, symbol); ok {
			return snap
		}
	}

	mc, err := g.src.MarketCap(ctx, symbol)
	if err != nil {
		slog.Warn("market cap lookup failed", "ticker", symbol, "error", err)
		return model.CapSnapshot{Symbol: symbol, FetchedAt: g.now()}
	}

	snap := model.CapSnapshot{Symbol: symbol, MarketCap: mc, FetchedAt: g.now()}
	if g.cache != nil {
		g.cache.Set(ctx, snap)
	}
	return snap
}

// IsEligible reports whether symbol's market cap is at least the threshold.
// An absent cap is never eligible.
func (g *Gate) IsEligible(ctx context.Context, symbol string) Decision {
	snap := g.Snapshot(ctx, symbol)
	ok := Eligible(snap.MarketCap, g.threshold)
	if !ok {
		slog.Debug("below market cap threshold", "ticker", symbol, "market_cap", snap.MarketCap.Float64, "has_cap", snap.MarketCap.Valid, "threshold", g.threshold)
	}
	return Decision{Eligible: ok, MarketCap: snap.MarketCap}
}

// Eligible applies the threshold rule to a single value.
func Eligible(marketCap null.Float, threshold float64) bool {
	return marketCap.Valid && marketCap.Float64 >= threshold
}

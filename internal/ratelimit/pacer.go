package ratelimit

import (
	"context"
	"time"
)

// Pacer is the coarse pacing policy of the batch loop.
type Pacer interface {
	AfterSymbol(ctx context.Context) error
	AfterBatch(ctx context.Context) error
}

// FixedPacer sleeps a fixed duration after each symbol and each batch.
type FixedPacer struct {
	SymbolPause time.Duration
	BatchPause  time.Duration
}

func (p FixedPacer) AfterSymbol(ctx context.Context) error { return Sleep(ctx, p.SymbolPause) }

func (p FixedPacer) AfterBatch(ctx context.Context) error { return Sleep(ctx, p.BatchPause) }

// NoPacer never waits. Used when request-level limiting is enough, and in tests.
type NoPacer struct{}

func (NoPacer) AfterSymbol(ctx context.Context) error { return ctx.Err() }

func (NoPacer) AfterBatch(ctx context.Context) error { return ctx.Err() }

package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// progress is shared between the batch loop and the heartbeat.
type progress struct {
	mu               sync.Mutex
	totalSymbols     int
	doneSymbols      int
	batch            int
	batchesDone      int
	priceRows        int
	fundamentalsRows int
}

func (p *progress) symbolDone() {
	p.mu.Lock()
	p.doneSymbols++
	p.mu.Unlock()
}

func (p *progress) batchStarted(id int) {
	p.mu.Lock()
	p.batch = id
	p.mu.Unlock()
}

func (p *progress) batchDone(prices, fundamentals int) {
	p.mu.Lock()
	p.batchesDone++
	p.priceRows += prices
	p.fundamentalsRows += fundamentals
	p.mu.Unlock()
}

func runHeartbeat(ctx context.Context, interval time.Duration, p *progress, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			logger.Info("heartbeat",
				"done", p.doneSymbols, "total", p.totalSymbols,
				"batch", p.batch, "batches_done", p.batchesDone,
				"price_rows", p.priceRows, "fundamentals_rows", p.fundamentalsRows)
			p.mu.Unlock()
		}
	}
}

package polygon

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

const (
	endpointAggregates = "aggregates"

	// Max daily bars returned per aggregates request
	maxDailyBars = 5000

	// One daily bar per calendar day at most, so a range of maxDailyBars days stays under the cap
	maxDaysPerRequest = maxDailyBars
)

// splitDateRangeIntoChunks splits [from, to] into day chunks so each request stays under maxDailyBars
func splitDateRangeIntoChunks(from, to time.Time, maxDays int) [][2]time.Time {
	var chunks [][2]time.Time
	start := truncateDay(from)
	end := truncateDay(to)

	if start.After(end) {
		return chunks
	}

	for currentStart := start; !currentStart.After(end); {
		currentEnd := currentStart.AddDate(0, 0, maxDays-1)
		if currentEnd.After(end) {
			currentEnd = end
		}

		chunks = append(chunks, [2]time.Time{currentStart, currentEnd})

		if currentEnd.Equal(end) {
			break
		}

		currentStart = currentEnd.AddDate(0, 0, 1)
	}

	return chunks
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyBars fetches adjusted daily aggregates for symbol over the inclusive
// date range [from, to], oldest first, without a market cap.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	chunks := splitDateRangeIntoChunks(from, to, maxDaysPerRequest)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("aggregates: empty date range %s..%s", from.Format(model.DateLayout), to.Format(model.DateLayout))
	}

	var bars []model.PriceBar
	for _, ch := range chunks {
		path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
			url.PathEscape(symbol), ch[0].Format(model.DateLayout), ch[1].Format(model.DateLayout))
		params := aggregatesParams{Adjusted: true, Sort: "asc", Limit: maxDailyBars}

		var resp AggregatesResponse
		if err := c.get(ctx, endpointAggregates, path, params, &resp); err != nil {
			return nil, err
		}
		if resp.NextURL != "" {
			slog.Warn("aggregates hit the per-request cap", "ticker", symbol, "from", ch[0].Format(model.DateLayout), "to", ch[1].Format(model.DateLayout), "limit", maxDailyBars)
		}

		if bars == nil {
			bars = make([]model.PriceBar, 0, len(resp.Results)*len(chunks))
		}
		for _, raw := range resp.Results {
			bars = append(bars, raw.ToPriceBar(symbol))
		}
	}
	return bars, nil
}

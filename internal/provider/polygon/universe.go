package polygon

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
)

const (
	endpointTickers = "tickers"

	// DefaultPageSize is the largest page the listing endpoint serves.
	DefaultPageSize = 1000
)

// Checkpoint persists listing progress so a failed enumeration can resume
// from the last good cursor instead of page one.
type Checkpoint interface {
	// Resume returns the symbols of every saved page in order and the cursor
	// of the next page. ok is false when nothing is saved.
	Resume(ctx context.Context) (symbols []string, next string, ok bool, err error)
	// SavePage appends one page and the cursor that follows it ("" when last).
	SavePage(ctx context.Context, symbols []string, next string) error
	// Clear drops saved progress.
	Clear(ctx context.Context) error
}

// Universe enumerates the active security universe by following
// continuation cursors until the server omits one.
type Universe struct {
	client     *Client
	checkpoint Checkpoint
	Market     string
	PageSize   int
}

// NewUniverse creates a universe fetcher. checkpoint may be nil.
func NewUniverse(client *Client, checkpoint Checkpoint) *Universe {
	return &Universe{
		client:     client,
		checkpoint: checkpoint,
		Market:     "stocks",
		PageSize:   DefaultPageSize,
	}
}

// Seq yields symbols in server order. A transport failure yields the error
// once and stops; pages already seen stay checkpointed for the next call.
func (u *Universe) Seq(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		next, resumed, stopped, err := u.resume(ctx, yield)
		if err != nil {
			yield("", err)
			return
		}
		if stopped {
			return
		}
		if resumed && next == "" {
			u.clear(ctx)
			return
		}

		page := 0
		for {
			var resp TickersResponse
			if page == 0 && !resumed {
				params := tickersParams{Market: u.Market, Active: true, Limit: u.PageSize}
				err = u.client.get(ctx, endpointTickers, "/v3/reference/tickers", params, &resp)
			} else {
				err = u.client.get(ctx, endpointTickers, next, nil, &resp)
			}
			if err != nil {
				yield("", fmt.Errorf("list universe page %d: %w", page+1, err))
				return
			}
			page++

			symbols := make([]string, 0, len(resp.Results))
			for _, item := range resp.Results {
				symbols = append(symbols, item.Ticker)
			}
			next = stripCredential(resp.NextURL)
			if u.checkpoint != nil {
				if err := u.checkpoint.SavePage(ctx, symbols, next); err != nil {
					slog.Warn("universe checkpoint save failed", "page", page, "error", err)
				}
			}
			slog.Debug("universe page", "page", page, "symbols", len(symbols), "has_next", next != "")

			for _, s := range symbols {
				if !yield(s, nil) {
					return
				}
			}
			if next == "" {
				u.clear(ctx)
				return
			}
		}
	}
}

// ListAll collects the full universe.
func (u *Universe) ListAll(ctx context.Context) ([]string, error) {
	var out []string
	for s, err := range u.Seq(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	slog.Info("universe listed", "symbols", len(out))
	return out, nil
}

// resume replays checkpointed symbols and returns the saved cursor.
// stopped is true when the consumer broke out during the replay.
func (u *Universe) resume(ctx context.Context, yield func(string, error) bool) (next string, resumed, stopped bool, err error) {
	if u.checkpoint == nil {
		return "", false, false, nil
	}
	symbols, next, ok, err := u.checkpoint.Resume(ctx)
	if err != nil {
		return "", false, false, fmt.Errorf("load universe checkpoint: %w", err)
	}
	if !ok {
		return "", false, false, nil
	}
	slog.Info("resuming universe listing", "symbols", len(symbols), "has_next", next != "")
	for _, s := range symbols {
		if !yield(s, nil) {
			return "", true, true, nil
		}
	}
	return next, true, false, nil
}

func (u *Universe) clear(ctx context.Context) {
	if u.checkpoint == nil {
		return
	}
	if err := u.checkpoint.Clear(ctx); err != nil {
		slog.Warn("universe checkpoint clear failed", "error", err)
	}
}

// stripCredential removes apiKey from a cursor URL so it can be stored.
func stripCredential(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("apiKey") {
		q.Del("apiKey")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

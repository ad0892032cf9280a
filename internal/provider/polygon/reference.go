package polygon

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

const (
	endpointTickerDetails = "ticker-details"
	endpointFinancials    = "financials"
)

// MarketCap fetches results.market_cap from the single-ticker reference endpoint.
// A reported-but-missing market cap is absent with a nil error.
func (c *Client) MarketCap(ctx context.Context, symbol string) (null.Float, error) {
	var resp TickerDetailsResponse
	path := "/v3/reference/tickers/" + url.PathEscape(symbol)
	if err := c.get(ctx, endpointTickerDetails, path, nil, &resp); err != nil {
		return null.Float{}, err
	}
	return resp.MarketCap(), nil
}

// Financials fetches the most recent quarterly reporting periods for symbol,
// mapped into records without a market cap.
func (c *Client) Financials(ctx context.Context, symbol string) ([]model.FundamentalsRecord, error) {
	var resp FinancialsResponse
	params := financialsParams{
		Ticker:    symbol,
		Timeframe: "quarterly",
		Limit:     c.financialsLimit,
	}
	if err := c.get(ctx, endpointFinancials, "/vX/reference/financials", params, &resp); err != nil {
		return nil, err
	}
	if resp.NextURL != "" {
		slog.Debug("financials truncated at limit", "ticker", symbol, "limit", c.financialsLimit)
	}

	records := make([]model.FundamentalsRecord, 0, len(resp.Results))
	for i, raw := range resp.Results {
		p, ok := ParseFinancialPeriod(raw)
		if !ok {
			slog.Debug("financials result is not an object, skipping", "ticker", symbol, "index", i)
			continue
		}
		records = append(records, p.ToRecord(symbol))
	}
	return records, nil
}

package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-date format used for every date column.
const DateLayout = "2006-01-02"

// PriceBar is one daily aggregate bar for a symbol.
//
// MarketCap is the capitalization snapshot taken when the bars were fetched
// and is copied onto every bar of the same fetch. It is not the market cap
// as of Date.
type PriceBar struct {
	Symbol       string     `json:"ticker"`
	Date         string     `json:"date"` // 2006-01-02, UTC
	Open         float64    `json:"open"`
	High         float64    `json:"high"`
	Low          float64    `json:"low"`
	Close        float64    `json:"close"`
	Volume       int64      `json:"volume"`
	VWAP         null.Float `json:"vwap"`
	Transactions null.Int   `json:"transactions"`
	MarketCap    null.Float `json:"market_cap"`
}

// DateFromMillis converts a provider epoch-millisecond timestamp to a calendar date.
func DateFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

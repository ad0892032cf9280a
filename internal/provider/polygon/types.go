package polygon

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// BarRaw is raw bar for JSON with FlexibleInt64 for Volume and Transactions
type BarRaw struct {
	Timestamp    int64         `json:"t"` // Unix timestamp in milliseconds
	Open         float64       `json:"o"`
	High         float64       `json:"h"`
	Low          float64       `json:"l"`
	Close        float64       `json:"c"`
	Volume       FlexibleInt64 `json:"v"`
	VWAP         *float64       `json:"vw,omitempty"`
	Transactions *FlexibleInt64 `json:"n,omitempty"`
}

// ToPriceBar converts BarRaw to model.PriceBar. MarketCap is left absent,
// as are vw and n when the provider omits them.
func (br BarRaw) ToPriceBar(symbol string) model.PriceBar {
	var trades null.Int
	if br.Transactions != nil {
		trades = null.IntFrom(br.Transactions.Int64())
	}
	return model.PriceBar{
		Symbol:       symbol,
		Date:         model.DateFromMillis(br.Timestamp),
		Open:         br.Open,
		High:         br.High,
		Low:          br.Low,
		Close:        br.Close,
		Volume:       br.Volume.Int64(),
		VWAP:         null.FloatFromPtr(br.VWAP),
		Transactions: trades,
	}
}

// AggregatesResponse is the aggregates endpoint response
type AggregatesResponse struct {
	Ticker       string   `json:"ticker"`
	QueryCount   int      `json:"queryCount"`
	ResultsCount int      `json:"resultsCount"`
	Adjusted     bool     `json:"adjusted"`
	Results      []BarRaw `json:"results"`
	Status       string   `json:"status"`
	RequestID    string   `json:"request_id"`
	NextURL      string   `json:"next_url,omitempty"`
}

// TickersResponse is one page of the reference tickers listing
type TickersResponse struct {
	Status    string       `json:"status"`
	RequestID string       `json:"request_id,omitempty"`
	Count     int          `json:"count"`
	NextURL   string       `json:"next_url,omitempty"`
	Results   []TickerItem `json:"results"`
}

// TickerItem is one listed security
type TickerItem struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Market string `json:"market"`
	Active bool   `json:"active"`
}

// TickerDetailsResponse is the single-ticker reference (metrics) response
type TickerDetailsResponse struct {
	Status  string `json:"status"`
	Results *struct {
		Ticker    string   `json:"ticker"`
		MarketCap *float64 `json:"market_cap"`
	} `json:"results"`
}

// MarketCap returns results.market_cap, absent at any missing link.
func (r TickerDetailsResponse) MarketCap() null.Float {
	if r.Results == nil {
		return null.Float{}
	}
	return null.FloatFromPtr(r.Results.MarketCap)
}

// FinancialsResponse is the quarterly financials response
type FinancialsResponse struct {
	Status    string            `json:"status"`
	RequestID string            `json:"request_id,omitempty"`
	Count     int               `json:"count"`
	NextURL   string            `json:"next_url,omitempty"`
	Results   []json.RawMessage `json:"results"`
}

// FinancialPeriod is one reporting period, keyed by field. Every level is
// decoded on access, so a field of the wrong type is absent and the rest of
// the period survives.
type FinancialPeriod map[string]json.RawMessage

// ParseFinancialPeriod decodes one element of results. ok is false when the
// element is not an object.
func ParseFinancialPeriod(raw json.RawMessage) (p FinancialPeriod, ok bool) {
	if err := json.Unmarshal(raw, &p); err != nil || p == nil {
		return nil, false
	}
	return p, true
}

func (p FinancialPeriod) date(key string) null.String {
	var s *string
	if err := json.Unmarshal(p[key], &s); err != nil {
		return null.String{}
	}
	return null.StringFromPtr(s)
}

func (p FinancialPeriod) statement(key string) Statement {
	var fin map[string]json.RawMessage
	if err := json.Unmarshal(p["financials"], &fin); err != nil {
		return nil
	}
	var s Statement
	if err := json.Unmarshal(fin[key], &s); err != nil {
		return nil
	}
	return s
}

// Statement is a financial statement keyed by line item. Items are decoded
// lazily so one malformed item does not reject the whole period.
type Statement map[string]json.RawMessage

// DataPoint is one line item of a statement.
type DataPoint struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
	Label string   `json:"label,omitempty"`
}

// Value looks up key; a nil statement, missing or malformed item, or null value is absent.
func (s Statement) Value(key string) null.Float {
	raw, ok := s[key]
	if !ok {
		return null.Float{}
	}
	var dp DataPoint
	if err := json.Unmarshal(raw, &dp); err != nil {
		return null.Float{}
	}
	return null.FloatFromPtr(dp.Value)
}

// ToRecord maps the period into a fundamentals record. MarketCap is left absent.
func (p FinancialPeriod) ToRecord(symbol string) model.FundamentalsRecord {
	income := p.statement("income_statement")
	balance := p.statement("balance_sheet")
	cash := p.statement("cash_flow_statement")
	return model.FundamentalsRecord{
		Symbol:            symbol,
		StartDate:         p.date("start_date"),
		EndDate:           p.date("end_date"),
		FilingDate:        p.date("filing_date"),
		Revenue:           income.Value("revenues"),
		NetIncome:         income.Value("net_income_loss"),
		OperatingIncome:   income.Value("operating_income_loss"),
		EPS:               income.Value("basic_earnings_per_share"),
		TotalAssets:       balance.Value("assets"),
		TotalLiabilities:  balance.Value("liabilities"),
		Equity:            balance.Value("equity"),
		OperatingCashFlow: cash.Value("net_cash_flow_from_operating_activities"),
		NetCashFlow:       cash.Value("net_cash_flow"),
	}
}

// FlexibleInt64 parses int or float (scientific notation) to int64
type FlexibleInt64 int64

// UnmarshalJSON parses int, float, quoted number or null
func (f *FlexibleInt64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexibleInt64(int64(val))
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = FlexibleInt64(int64(floatVal))
		return nil
	}

	return fmt.Errorf("cannot parse as int64: %s", string(data))
}

// Int64 returns int64 value
func (f FlexibleInt64) Int64() int64 {
	return int64(f)
}

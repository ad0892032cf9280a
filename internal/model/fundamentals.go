package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// FundamentalsRecord is one reported quarterly period of a security.
// Every figure may be absent; absence is never coerced to zero.
type FundamentalsRecord struct {
	Symbol            string      `json:"ticker"`
	StartDate         null.String `json:"start_date"`
	EndDate           null.String `json:"end_date"`
	FilingDate        null.String `json:"filing_date"`
	Revenue           null.Float  `json:"revenue"`
	NetIncome         null.Float  `json:"net_income"`
	OperatingIncome   null.Float  `json:"operating_income"`
	EPS               null.Float  `json:"eps"`
	TotalAssets       null.Float  `json:"total_assets"`
	TotalLiabilities  null.Float  `json:"total_liabilities"`
	Equity            null.Float  `json:"equity"`
	MarketCap         null.Float  `json:"market_cap"`
	OperatingCashFlow null.Float  `json:"operating_cash_flow"`
	NetCashFlow       null.Float  `json:"net_cash_flow"`
}

// CapSnapshot is a point-in-time market capitalization lookup.
type CapSnapshot struct {
	Symbol    string
	MarketCap null.Float
	FetchedAt time.Time
}

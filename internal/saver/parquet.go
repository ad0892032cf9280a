package saver

import (
	"github.com/guregu/null/v6"
	"github.com/parquet-go/parquet-go"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// ParquetSaver stores tables as Parquet with snake_case columns. Values that
// may be absent are optional columns.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

// priceRecord is the Parquet row of a price bar.
type priceRecord struct {
	Ticker       string   `parquet:"ticker"`
	Date         string   `parquet:"date"`
	Open         float64  `parquet:"open"`
	High         float64  `parquet:"high"`
	Low          float64  `parquet:"low"`
	Close        float64  `parquet:"close"`
	Volume       int64    `parquet:"volume"`
	VWAP         *float64 `parquet:"vwap,optional"`
	Transactions *int64   `parquet:"transactions,optional"`
	MarketCap    *float64 `parquet:"market_cap,optional"`
}

// fundamentalsRecord is the Parquet row of a fundamentals period.
type fundamentalsRecord struct {
	Ticker            string   `parquet:"ticker"`
	StartDate         *string  `parquet:"start_date,optional"`
	EndDate           *string  `parquet:"end_date,optional"`
	FilingDate        *string  `parquet:"filing_date,optional"`
	Revenue           *float64 `parquet:"revenue,optional"`
	NetIncome         *float64 `parquet:"net_income,optional"`
	OperatingIncome   *float64 `parquet:"operating_income,optional"`
	EPS               *float64 `parquet:"eps,optional"`
	TotalAssets       *float64 `parquet:"total_assets,optional"`
	TotalLiabilities  *float64 `parquet:"total_liabilities,optional"`
	Equity            *float64 `parquet:"equity,optional"`
	MarketCap         *float64 `parquet:"market_cap,optional"`
	OperatingCashFlow *float64 `parquet:"operating_cash_flow,optional"`
	NetCashFlow       *float64 `parquet:"net_cash_flow,optional"`
}

func (ParquetSaver) SavePrices(rows []model.PriceBar, path string) error {
	out := make([]priceRecord, len(rows))
	for i, b := range rows {
		out[i] = priceRecord{
			Ticker:       b.Symbol,
			Date:         b.Date,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			VWAP:         b.VWAP.Ptr(),
			Transactions: b.Transactions.Ptr(),
			MarketCap:    b.MarketCap.Ptr(),
		}
	}
	return parquet.WriteFile(path, out)
}

func (ParquetSaver) SaveFundamentals(rows []model.FundamentalsRecord, path string) error {
	out := make([]fundamentalsRecord, len(rows))
	for i, r := range rows {
		out[i] = fundamentalsRecord{
			Ticker:            r.Symbol,
			StartDate:         r.StartDate.Ptr(),
			EndDate:           r.EndDate.Ptr(),
			FilingDate:        r.FilingDate.Ptr(),
			Revenue:           r.Revenue.Ptr(),
			NetIncome:         r.NetIncome.Ptr(),
			OperatingIncome:   r.OperatingIncome.Ptr(),
			EPS:               r.EPS.Ptr(),
			TotalAssets:       r.TotalAssets.Ptr(),
			TotalLiabilities:  r.TotalLiabilities.Ptr(),
			Equity:            r.Equity.Ptr(),
			MarketCap:         r.MarketCap.Ptr(),
			OperatingCashFlow: r.OperatingCashFlow.Ptr(),
			NetCashFlow:       r.NetCashFlow.Ptr(),
		}
	}
	return parquet.WriteFile(path, out)
}

func (ParquetSaver) LoadPrices(path string) ([]model.PriceBar, error) {
	recs, err := parquet.ReadFile[priceRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]model.PriceBar, len(recs))
	for i, r := range recs {
		out[i] = model.PriceBar{
			Symbol:       r.Ticker,
			Date:         r.Date,
			Open:         r.Open,
			High:         r.High,
			Low:          r.Low,
			Close:        r.Close,
			Volume:       r.Volume,
			VWAP:         null.FloatFromPtr(r.VWAP),
			Transactions: null.IntFromPtr(r.Transactions),
			MarketCap:    null.FloatFromPtr(r.MarketCap),
		}
	}
	return out, nil
}

func (ParquetSaver) LoadFundamentals(path string) ([]model.FundamentalsRecord, error) {
	recs, err := parquet.ReadFile[fundamentalsRecord](path)
	if err != nil {
		return nil, err
	}
	out := make([]model.FundamentalsRecord, len(recs))
	for i, r := range recs {
		out[i] = model.FundamentalsRecord{
			Symbol:            r.Ticker,
			StartDate:         null.StringFromPtr(r.StartDate),
			EndDate:           null.StringFromPtr(r.EndDate),
			FilingDate:        null.StringFromPtr(r.FilingDate),
			Revenue:           null.FloatFromPtr(r.Revenue),
			NetIncome:         null.FloatFromPtr(r.NetIncome),
			OperatingIncome:   null.FloatFromPtr(r.OperatingIncome),
			EPS:               null.FloatFromPtr(r.EPS),
			TotalAssets:       null.FloatFromPtr(r.TotalAssets),
			TotalLiabilities:  null.FloatFromPtr(r.TotalLiabilities),
			Equity:            null.FloatFromPtr(r.Equity),
			MarketCap:         null.FloatFromPtr(r.MarketCap),
			OperatingCashFlow: null.FloatFromPtr(r.OperatingCashFlow),
			NetCashFlow:       null.FloatFromPtr(r.NetCashFlow),
		}
	}
	return out, nil
}

package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Validate checks the structural shape of a bar: a symbol, a calendar date
// and finite prices.
func (b PriceBar) Validate() error {
	if b.Symbol == "" {
		return errors.New("missing ticker")
	}
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return fmt.Errorf("bad date %q", b.Date)
	}
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.VWAP.Float64} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite price on %s", b.Date)
		}
	}
	if b.Volume < 0 || b.Transactions.Int64 < 0 {
		return fmt.Errorf("negative volume on %s", b.Date)
	}
	return nil
}

// Validate checks the structural shape of a record: a symbol and, where
// present, calendar dates.
func (r FundamentalsRecord) Validate() error {
	if r.Symbol == "" {
		return errors.New("missing ticker")
	}
	for _, d := range [...]struct {
		name  string
		value string
		valid bool
	}{
		{"start_date", r.StartDate.String, r.StartDate.Valid},
		{"end_date", r.EndDate.String, r.EndDate.Valid},
		{"filing_date", r.FilingDate.String, r.FilingDate.Valid},
	} {
		if !d.valid {
			continue
		}
		if _, err := time.Parse(DateLayout, d.value); err != nil {
			return fmt.Errorf("bad %s %q", d.name, d.value)
		}
	}
	return nil
}

package saver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// CSVSaver stores tables as CSV with human-readable headers. Absent values
// are empty cells. Loading matches columns by header name, so column order
// does not matter and unknown columns are ignored.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) SavePrices(rows []model.PriceBar, path string) error {
	return writeCSV(path, priceColumns, rows)
}

func (CSVSaver) SaveFundamentals(rows []model.FundamentalsRecord, path string) error {
	return writeCSV(path, fundamentalsColumns, rows)
}

func (CSVSaver) LoadPrices(path string) ([]model.PriceBar, error) {
	return readCSV(path, priceColumns)
}

func (CSVSaver) LoadFundamentals(path string) ([]model.FundamentalsRecord, error) {
	return readCSV(path, fundamentalsColumns)
}

type column[T any] struct {
	name string
	get  func(*T) string
	set  func(*T, string) error
}

var priceColumns = []column[model.PriceBar]{
	{"Ticker", func(b *model.PriceBar) string { return b.Symbol }, func(b *model.PriceBar, s string) error { b.Symbol = s; return nil }},
	{"Date", func(b *model.PriceBar) string { return b.Date }, func(b *model.PriceBar, s string) error { b.Date = s; return nil }},
	{"Open Price", func(b *model.PriceBar) string { return floatStr(b.Open) }, func(b *model.PriceBar, s string) (err error) { b.Open, err = parseFloat(s); return }},
	{"High Price", func(b *model.PriceBar) string { return floatStr(b.High) }, func(b *model.PriceBar, s string) (err error) { b.High, err = parseFloat(s); return }},
	{"Low Price", func(b *model.PriceBar) string { return floatStr(b.Low) }, func(b *model.PriceBar, s string) (err error) { b.Low, err = parseFloat(s); return }},
	{"Close Price", func(b *model.PriceBar) string { return floatStr(b.Close) }, func(b *model.PriceBar, s string) (err error) { b.Close, err = parseFloat(s); return }},
	{"Volume", func(b *model.PriceBar) string { return strconv.FormatInt(b.Volume, 10) }, func(b *model.PriceBar, s string) (err error) { b.Volume, err = parseInt(s); return }},
	{"Volume Weighted Price", func(b *model.PriceBar) string { return nullFloatStr(b.VWAP) }, func(b *model.PriceBar, s string) (err error) { b.VWAP, err = parseNullFloat(s); return }},
	{"Number of Trades", func(b *model.PriceBar) string { return nullIntStr(b.Transactions) }, func(b *model.PriceBar, s string) (err error) { b.Transactions, err = parseNullInt(s); return }},
	{"Market Cap", func(b *model.PriceBar) string { return nullFloatStr(b.MarketCap) }, func(b *model.PriceBar, s string) (err error) { b.MarketCap, err = parseNullFloat(s); return }},
}

type fr = model.FundamentalsRecord

func nullFloatColumn(name string, field func(*fr) *null.Float) column[fr] {
	return column[fr]{
		name: name,
		get:  func(r *fr) string { return nullFloatStr(*field(r)) },
		set: func(r *fr, s string) error {
			v, err := parseNullFloat(s)
			*field(r) = v
			return err
		},
	}
}

func nullStringColumn(name string, field func(*fr) *null.String) column[fr] {
	return column[fr]{
		name: name,
		get:  func(r *fr) string { return field(r).String },
		set: func(r *fr, s string) error {
			*field(r) = null.NewString(s, s != "")
			return nil
		},
	}
}

var fundamentalsColumns = []column[fr]{
	{"Ticker", func(r *fr) string { return r.Symbol }, func(r *fr, s string) error { r.Symbol = s; return nil }},
	nullStringColumn("Start Date", func(r *fr) *null.String { return &r.StartDate }),
	nullStringColumn("End Date", func(r *fr) *null.String { return &r.EndDate }),
	nullStringColumn("Filing Date", func(r *fr) *null.String { return &r.FilingDate }),
	nullFloatColumn("Revenue", func(r *fr) *null.Float { return &r.Revenue }),
	nullFloatColumn("Net Income", func(r *fr) *null.Float { return &r.NetIncome }),
	nullFloatColumn("Operating Income", func(r *fr) *null.Float { return &r.OperatingIncome }),
	nullFloatColumn("EPS", func(r *fr) *null.Float { return &r.EPS }),
	nullFloatColumn("Total Assets", func(r *fr) *null.Float { return &r.TotalAssets }),
	nullFloatColumn("Total Liabilities", func(r *fr) *null.Float { return &r.TotalLiabilities }),
	nullFloatColumn("Equity", func(r *fr) *null.Float { return &r.Equity }),
	nullFloatColumn("Market Cap", func(r *fr) *null.Float { return &r.MarketCap }),
	nullFloatColumn("Operating Cash Flow", func(r *fr) *null.Float { return &r.OperatingCashFlow }),
	nullFloatColumn("Total Net Cash Flow", func(r *fr) *null.Float { return &r.NetCashFlow }),
}

func headerOf[T any](cols []column[T]) []string {
	h := make([]string, len(cols))
	for i, c := range cols {
		h[i] = c.name
	}
	return h
}

func writeCSV[T any](path string, cols []column[T], rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headerOf(cols)); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			rec[j] = c.get(&rows[i])
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func readCSV[T any](path string, cols []column[T]) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var out []T
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var row T
		for _, c := range cols {
			i, ok := index[c.name]
			if !ok || i >= len(rec) {
				continue
			}
			if err := c.set(&row, rec[i]); err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, c.name, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func nullFloatStr(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return floatStr(v.Float64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func nullIntStr(v null.Int) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func parseNullInt(s string) (null.Int, error) {
	if s == "" {
		return null.Int{}, nil
	}
	v, err := parseInt(s)
	if err != nil {
		return null.Int{}, err
	}
	return null.IntFrom(v), nil
}

func parseNullFloat(s string) (null.Float, error) {
	if s == "" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, err
	}
	return null.FloatFrom(v), nil
}

package saver

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/guregu/null/v6"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

func samplePrices() []model.PriceBar {
	return []model.PriceBar{
		{Symbol: "AAPL", Date: "2025-02-27", Open: 1.5, High: 2, Low: 1, Close: 1.75, Volume: 1000, VWAP: null.FloatFrom(1.6), Transactions: null.IntFrom(12), MarketCap: null.FloatFrom(3.2e12)},
		{Symbol: "AAPL", Date: "2025-02-28", Open: 1.75, High: 2.25, Low: 1.5, Close: 2, Volume: 900},
	}
}

func sampleFundamentals() []model.FundamentalsRecord {
	return []model.FundamentalsRecord{
		{
			Symbol:     "AAPL",
			StartDate:  null.StringFrom("2024-07-01"),
			EndDate:    null.StringFrom("2024-09-30"),
			FilingDate: null.StringFrom("2024-11-01"),
			Revenue:    null.FloatFrom(94.93e9),
			NetIncome:  null.FloatFrom(-14.7e9),
			EPS:        null.FloatFrom(0.97),
			MarketCap:  null.FloatFrom(3.2e12),
		},
		{Symbol: "AAPL", EndDate: null.StringFrom("2024-06-30")},
	}
}

func TestSaversRoundTrip(t *testing.T) {
	for _, format := range []string{"csv", "parquet", "json"} {
		t.Run(format, func(t *testing.T) {
			s := NewTableSaver(format)
			if s == nil {
				t.Fatalf("no saver for %s", format)
			}
			dir := t.TempDir()

			pp := filepath.Join(dir, "p."+s.Extension())
			if err := s.SavePrices(samplePrices(), pp); err != nil {
				t.Fatalf("SavePrices: %v", err)
			}
			gotP, err := s.LoadPrices(pp)
			if err != nil {
				t.Fatalf("LoadPrices: %v", err)
			}
			if !reflect.DeepEqual(gotP, samplePrices()) {
				t.Errorf("prices round trip:\n got %+v\nwant %+v", gotP, samplePrices())
			}

			fp := filepath.Join(dir, "f."+s.Extension())
			if err := s.SaveFundamentals(sampleFundamentals(), fp); err != nil {
				t.Fatalf("SaveFundamentals: %v", err)
			}
			gotF, err := s.LoadFundamentals(fp)
			if err != nil {
				t.Fatalf("LoadFundamentals: %v", err)
			}
			if !reflect.DeepEqual(gotF, sampleFundamentals()) {
				t.Errorf("fundamentals round trip:\n got %+v\nwant %+v", gotF, sampleFundamentals())
			}
		})
	}
	if NewTableSaver("xlsx") != nil {
		t.Error("unsupported format should return nil")
	}
}

func TestCSVHeadersAndEmptyCells(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f.csv")
	if err := (CSVSaver{}).SaveFundamentals(sampleFundamentals(), p); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(p)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := "Ticker,Start Date,End Date,Filing Date,Revenue,Net Income,Operating Income,EPS,Total Assets,Total Liabilities,Equity,Market Cap,Operating Cash Flow,Total Net Cash Flow"
	if lines[0] != want {
		t.Errorf("header = %s", lines[0])
	}
	if lines[2] != "AAPL,,2024-06-30"+strings.Repeat(",", 11) {
		t.Errorf("absent values should be empty cells, got %s", lines[2])
	}

	pp := filepath.Join(dir, "p.csv")
	if err := (CSVSaver{}).SavePrices(samplePrices(), pp); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(pp)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "Ticker,Date,Open Price,High Price,Low Price,Close Price,Volume,Volume Weighted Price,Number of Trades,Market Cap" {
		t.Errorf("price header = %s", lines[0])
	}
	// vw, n and market cap missing on the second bar
	if lines[2] != "AAPL,2025-02-28,1.75,2.25,1.5,2,900,,," {
		t.Errorf("absent bar values should be empty cells, got %s", lines[2])
	}
}

func TestCSVLoadMatchesByHeaderName(t *testing.T) {
	p := filepath.Join(t.TempDir(), "p.csv")
	content := "Date,Ticker,Extra,Close Price,Market Cap\n2025-01-02,MSFT,x,10.5,\n"
	os.WriteFile(p, []byte(content), 0644)

	rows, err := (CSVSaver{}).LoadPrices(p)
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(rows) != 1 || rows[0].Symbol != "MSFT" || rows[0].Date != "2025-01-02" || rows[0].Close != 10.5 || rows[0].MarketCap.Valid {
		t.Errorf("rows = %+v", rows)
	}
}

func TestBatchWriterSkipsEmptyAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewBatchWriter(dir, CSVSaver{})

	written, err := w.Write(3, samplePrices(), nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if written.PricePath != filepath.Join(dir, "price_batch_3.csv") || written.FundamentalsPath != "" {
		t.Errorf("written = %+v", written)
	}
	if _, err := os.Stat(filepath.Join(dir, "fundamentals_batch_3.csv")); !os.IsNotExist(err) {
		t.Error("empty fundamentals table should not be written")
	}

	// second write of the same batch replaces the first
	if _, err := w.Write(3, samplePrices()[:1], nil); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	rows, err := (CSVSaver{}).LoadPrices(written.PricePath)
	if err != nil || len(rows) != 1 {
		t.Errorf("after rewrite got %d rows, %v", len(rows), err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	written, err = w.Write(4, nil, nil)
	if err != nil || written != (Written{}) {
		t.Errorf("empty batch = %+v, %v", written, err)
	}
}

func TestWriteMerged(t *testing.T) {
	dir := t.TempDir()
	w := NewBatchWriter(dir, JSONSaver{})
	written, err := w.WriteMerged(nil, sampleFundamentals())
	if err != nil {
		t.Fatal(err)
	}
	if written.PricePath != "" || filepath.Base(written.FundamentalsPath) != "merged_fundamentals_data.json" {
		t.Errorf("written = %+v", written)
	}
}

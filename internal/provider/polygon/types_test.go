package polygon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSplitDateRangeIntoChunks(t *testing.T) {
	from := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)

	one := splitDateRangeIntoChunks(from, to, maxDaysPerRequest)
	if len(one) != 1 || !one[0][0].Equal(from) || !one[0][1].Equal(to) {
		t.Fatalf("5y range should be one chunk, got %v", one)
	}

	chunks := splitDateRangeIntoChunks(from, to, 365)
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if !chunks[i][0].Equal(chunks[i-1][1].AddDate(0, 0, 1)) {
			t.Errorf("chunk %d does not start the day after chunk %d ends", i, i-1)
		}
	}
	if !chunks[len(chunks)-1][1].Equal(to) {
		t.Errorf("last chunk ends %v, want %v", chunks[len(chunks)-1][1], to)
	}

	if got := splitDateRangeIntoChunks(to, from, 10); len(got) != 0 {
		t.Errorf("reversed range should be empty, got %v", got)
	}
	if got := splitDateRangeIntoChunks(from, from, 10); len(got) != 1 {
		t.Errorf("single day should be one chunk, got %v", got)
	}
}

func TestFlexibleInt64(t *testing.T) {
	cases := map[string]int64{
		`123`:      123,
		`1.5e6`:    1500000,
		`"42"`:     42,
		`"1.2E3"`:  1200,
		`null`:     0,
		`99.99`:    99,
	}
	for in, want := range cases {
		var f FlexibleInt64
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if f.Int64() != want {
			t.Errorf("Unmarshal(%s) = %d, want %d", in, f.Int64(), want)
		}
	}
	var f FlexibleInt64
	if err := json.Unmarshal([]byte(`{}`), &f); err == nil {
		t.Error("object should not parse")
	}
}

func TestStripCredential(t *testing.T) {
	got := stripCredential("https://api.polygon.io/v3/reference/tickers?cursor=abc&apiKey=secret")
	if strings.Contains(got, "secret") || !strings.Contains(got, "cursor=abc") {
		t.Errorf("stripCredential = %s", got)
	}
	if stripCredential("") != "" {
		t.Error("empty cursor should stay empty")
	}
}

func TestLoadTickersFromFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "tickers.txt")
	os.WriteFile(txt, []byte("# comment\naapl\n\nMSFT\nAAPL\n brk.b \n"), 0644)
	got, err := LoadTickersFromFile(txt)
	if err != nil {
		t.Fatalf("LoadTickersFromFile(txt): %v", err)
	}
	if strings.Join(got, ",") != "AAPL,MSFT,BRK.B" {
		t.Errorf("txt tickers = %v", got)
	}

	js := filepath.Join(dir, "out", "tickers.json")
	if err := SaveTickersToFile([]string{"X", "Y"}, js); err != nil {
		t.Fatalf("SaveTickersToFile: %v", err)
	}
	got, err = LoadTickersFromFile(js)
	if err != nil || strings.Join(got, ",") != "X,Y" {
		t.Errorf("json tickers = %v, %v", got, err)
	}

	if _, err := LoadTickersFromFile(filepath.Join(dir, "tickers.csv")); err == nil {
		t.Error("missing file should fail")
	}
}

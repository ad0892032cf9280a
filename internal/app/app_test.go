package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// fakePolygon serves A (cap 1e9, two quarters, ten bars), B (cap 1e8) and
// C (no cap).
type fakePolygon struct {
	capLookups atomic.Int32
}

func (f *fakePolygon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("apiKey") != "test-key" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	p := r.URL.Path
	switch {
	case p == "/v3/reference/tickers":
		json.NewEncoder(w).Encode(polygon.TickersResponse{Status: "OK", Count: 3, Results: []polygon.TickerItem{
			{Ticker: "A", Active: true}, {Ticker: "B", Active: true}, {Ticker: "C", Active: true},
		}})
	case p == "/v3/reference/tickers/A":
		f.capLookups.Add(1)
		w.Write([]byte(`{"status":"OK","results":{"ticker":"A","market_cap":1000000000}}`))
	case p == "/v3/reference/tickers/B":
		f.capLookups.Add(1)
		w.Write([]byte(`{"status":"OK","results":{"ticker":"B","market_cap":100000000}}`))
	case p == "/v3/reference/tickers/C":
		f.capLookups.Add(1)
		w.Write([]byte(`{"status":"OK","results":{"ticker":"C"}}`))
	case p == "/vX/reference/financials" && r.URL.Query().Get("ticker") == "A":
		w.Write([]byte(`{"status":"OK","results":[
		  {"start_date":"2024-10-01","end_date":"2024-12-31","financials":{"income_statement":{"revenues":{"value":10}}}},
		  {"start_date":"2024-07-01","end_date":"2024-09-30","financials":{"income_statement":{"revenues":{"value":9}}}}]}`))
	case strings.HasPrefix(p, "/v2/aggs/ticker/A/range/1/day/"):
		var sb strings.Builder
		sb.WriteString(`{"status":"OK","results":[`)
		start := time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC)
		for i := range 10 {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"t":%d,"o":1,"h":2,"l":0.5,"c":1.5,"v":1000}`, start.AddDate(0, 0, i).UnixMilli())
		}
		sb.WriteString("]}")
		w.Write([]byte(sb.String()))
	default:
		w.Write([]byte(`{"status":"OK","results":[]}`))
	}
}

func testConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.StartDate = "2025-01-01"
	cfg.EndDate = "2025-01-31"
	cfg.SymbolPause = 0
	cfg.BatchPause = 0
	cfg.MaxRetries = 0
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.ManifestPath = filepath.Join(cfg.DataDir, "manifest.db")
	cfg.SaveFormat = "csv"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

// buildApp wires the App the same way the generated injector does.
func buildApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	store, closeStore, err := ProvideManifest(cfg)
	if err != nil {
		t.Fatalf("ProvideManifest: %v", err)
	}
	t.Cleanup(closeStore)
	dp, closeDP, err := ProvidePolygonProvider(cfg, store)
	if err != nil {
		t.Fatalf("ProvidePolygonProvider: %v", err)
	}
	t.Cleanup(closeDP)
	cache, closeCache := ProvideCapCache(cfg)
	t.Cleanup(closeCache)

	f := ProvideFetcher(ProvideGate(cfg, dp, cache), dp)
	ts, err := ProvideTableSaver(cfg)
	if err != nil {
		t.Fatalf("ProvideTableSaver: %v", err)
	}
	w := ProvideBatchWriter(cfg, ts)
	orch, err := ProvideOrchestrator(cfg, f, w, store, ProvidePacer(cfg), ts)
	if err != nil {
		t.Fatalf("ProvideOrchestrator: %v", err)
	}
	return &App{
		Config:       cfg,
		DP:           dp,
		Manifest:     store,
		Orchestrator: orch,
		Consolidator: ProvideConsolidator(ProvideArtifactSource(cfg, store, ts), ts, w),
	}
}

func TestRunOnceEndToEnd(t *testing.T) {
	fake := &fakePolygon{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	a := buildApp(t, cfg)
	ctx := context.Background()

	if err := a.RunOnce(ctx, false); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n := fake.capLookups.Load(); n != 3 {
		t.Errorf("cap lookups = %d, want one per symbol", n)
	}

	cs := saver.CSVSaver{}
	fund, err := cs.LoadFundamentals(filepath.Join(cfg.DataDir, "fundamentals_batch_1.csv"))
	if err != nil {
		t.Fatalf("load fundamentals batch: %v", err)
	}
	prices, err := cs.LoadPrices(filepath.Join(cfg.DataDir, "price_batch_1.csv"))
	if err != nil {
		t.Fatalf("load price batch: %v", err)
	}
	if len(fund) != 2 || len(prices) != 10 {
		t.Fatalf("batch 1 rows: fundamentals=%d prices=%d, want 2 and 10", len(fund), len(prices))
	}
	for _, r := range fund {
		if r.Symbol != "A" || r.MarketCap.Float64 != 1e9 {
			t.Errorf("fundamentals row %+v", r)
		}
	}
	for _, b := range prices {
		if b.Symbol != "A" || b.MarketCap.Float64 != 1e9 {
			t.Errorf("price row %+v", b)
		}
	}
	if prices[0].Date != "2025-01-02" || prices[9].Date != "2025-01-11" {
		t.Errorf("price dates %s..%s", prices[0].Date, prices[9].Date)
	}

	mergedF, err := cs.LoadFundamentals(filepath.Join(cfg.DataDir, "merged_fundamentals_data.csv"))
	if err != nil || len(mergedF) != 2 {
		t.Errorf("merged fundamentals = %d rows, %v", len(mergedF), err)
	}
	mergedP, err := cs.LoadPrices(filepath.Join(cfg.DataDir, "merged_price_data.csv"))
	if err != nil || len(mergedP) != 10 {
		t.Errorf("merged prices = %d rows, %v", len(mergedP), err)
	}

	if ok, _ := a.Manifest.IsCompleted(ctx, 1); !ok {
		t.Error("batch 1 not recorded in manifest")
	}
	if _, _, ok, _ := a.Manifest.Resume(ctx); ok {
		t.Error("universe checkpoint left behind after a complete listing")
	}

	raw, err := os.ReadFile(filepath.Join(cfg.DataDir, ".lastrun.failed.json"))
	if err != nil {
		t.Fatalf("run report: %v", err)
	}
	for _, sym := range []string{`"B"`, `"C"`} {
		if !strings.Contains(string(raw), sym) {
			t.Errorf("run report missing %s: %s", sym, raw)
		}
	}
}

func TestRunOnceSkipsCompletedBatches(t *testing.T) {
	srv := httptest.NewServer(&fakePolygon{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.SkipCompleted = true
	a := buildApp(t, cfg)
	ctx := context.Background()

	if err := a.RunOnce(ctx, false); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	path := filepath.Join(cfg.DataDir, "price_batch_1.csv")
	before, _ := os.Stat(path)

	a = buildApp(t, cfg)
	if err := a.RunOnce(ctx, false); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("completed batch was rewritten")
	}
	rows, _ := saver.CSVSaver{}.LoadPrices(filepath.Join(cfg.DataDir, "merged_price_data.csv"))
	if len(rows) != 10 {
		t.Errorf("merged prices after rerun = %d, want 10", len(rows))
	}
}

func TestDumpUniverse(t *testing.T) {
	srv := httptest.NewServer(&fakePolygon{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.SliceStart = 1
	a := buildApp(t, cfg)

	out := filepath.Join(t.TempDir(), "tickers.json")
	n, err := a.DumpUniverse(context.Background(), out, true)
	if err != nil || n != 2 {
		t.Fatalf("DumpUniverse = %d, %v", n, err)
	}
	got, err := polygon.LoadTickersFromFile(out)
	if err != nil || len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("saved tickers = %v, %v", got, err)
	}
}

func TestGateUsesConfiguredThreshold(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.MarketCapThreshold = 2.5e9
	cache, closeCache := ProvideCapCache(cfg)
	t.Cleanup(closeCache)
	if g := ProvideGate(cfg, nil, cache); g.Threshold() != 2.5e9 {
		t.Errorf("threshold = %v, want 2.5e9", g.Threshold())
	}
}

func TestRunFlowRejectsBadSchedule(t *testing.T) {
	srv := httptest.NewServer(&fakePolygon{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Schedule = "every now and then"
	if err := buildApp(t, cfg).RunFlow(context.Background(), false); err == nil {
		t.Error("expected schedule error")
	}
}

package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("POLYGON_API_KEY", "k")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("SYMBOL_PAUSE", "250ms")
	t.Setenv("MARKET_CAP_THRESHOLD", "1e9")
	t.Setenv("SKIP_COMPLETED", "true")
	t.Setenv("DATA_DIR", "/tmp/out")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BatchSize != 25 || cfg.SymbolPause != 250*time.Millisecond || cfg.MarketCapThreshold != 1e9 || !cfg.SkipCompleted {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.ManifestPath != filepath.Join("/tmp/out", "manifest.db") {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath)
	}
	if cfg.StartDate != "2020-03-02" || cfg.EndDate != "2025-02-28" || cfg.StartBatchID != 1 {
		t.Errorf("defaults changed: %+v", cfg)
	}
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `api_key: from-file
batch_size: 50
start_batch_id: 7
save_format: JSON
slice_start: 10
slice_end: 20
retry_max_delay: 30s
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYGON_API_KEY", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIKey != "from-env" || cfg.BatchSize != 50 || cfg.StartBatchID != 7 || cfg.SaveFormat != "json" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.RetryMaxDelay != 30*time.Second {
		t.Errorf("RetryMaxDelay = %v", cfg.RetryMaxDelay)
	}
	got := cfg.SliceUniverse(make([]string, 15))
	if len(got) != 5 {
		t.Errorf("SliceUniverse over 15 symbols = %d, want 5", len(got))
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing key":    {"POLYGON_API_KEY": ""},
		"bad format":     {"SAVE_FORMAT": "xlsx"},
		"reversed dates": {"START_DATE": "2025-01-02", "END_DATE": "2025-01-01"},
		"bad date":       {"START_DATE": "02/01/2025"},
		"bad int":        {"BATCH_SIZE": "many"},
		"zero batch":     {"BATCH_SIZE": "0"},
		"bad cache":      {"CACHE_BACKEND": "memcached"},
		"slice":          {"SLICE_START": "5", "SLICE_END": "5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("POLYGON_API_KEY", "k")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateMessageNamesField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.RetryMaxDelay = time.Millisecond
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RetryMaxDelay") {
		t.Errorf("Validate = %v", err)
	}
}

func TestSliceUniverseClamps(t *testing.T) {
	cfg := DefaultConfig()
	syms := []string{"A", "B", "C"}
	cfg.SliceStart, cfg.SliceEnd = 1, 100
	if got := cfg.SliceUniverse(syms); len(got) != 2 || got[0] != "B" {
		t.Errorf("got %v", got)
	}
	cfg.SliceStart, cfg.SliceEnd = 5, 0
	if got := cfg.SliceUniverse(syms); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

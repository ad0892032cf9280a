package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elvin-stowell/csds-312-final-project/internal/capgate"
	"github.com/elvin-stowell/csds-312-final-project/internal/consolidate"
	"github.com/elvin-stowell/csds-312-final-project/internal/crawl"
	"github.com/elvin-stowell/csds-312-final-project/internal/fetch"
	"github.com/elvin-stowell/csds-312-final-project/internal/manifest"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider"
	"github.com/elvin-stowell/csds-312-final-project/internal/ratelimit"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// ConfigPath is the optional YAML config file location (for Wire).
type ConfigPath string

// ProvideConfig loads config from file and environment (for Wire).
func ProvideConfig(path ConfigPath) (*Config, error) {
	return LoadConfig(string(path))
}

// ProvideManifest opens the manifest store (for Wire).
func ProvideManifest(cfg *Config) (*manifest.Store, func(), error) {
	if err := ensureDir(cfg.ManifestPath); err != nil {
		return nil, nil, err
	}
	store, err := manifest.Open(cfg.ManifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest %s: %w", cfg.ManifestPath, err)
	}
	return store, func() { store.Close() }, nil
}

// ProvidePolygonProvider creates the Polygon provider with the manifest as
// its universe checkpoint (for Wire). Caller must run the cleanup when done.
func ProvidePolygonProvider(cfg *Config, store *manifest.Store) (*provider.PolygonProvider, func(), error) {
	p, err := CreateProvider(cfg, store)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}

// ProvideCapCache builds the market cap cache named by config (for Wire).
// An unreachable Redis falls back to the in-memory cache.
func ProvideCapCache(cfg *Config) (capgate.Cache, func()) {
	switch cfg.CacheBackend {
	case "none":
		return nil, func() {}
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		rc := capgate.NewRedisCache(client, cfg.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, using in-memory market cap cache", "addr", cfg.RedisAddr, "error", err)
			client.Close()
			return capgate.NewMemoryCache(cfg.CacheTTL), func() {}
		}
		slog.Info("market cap cache", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return rc, func() { client.Close() }
	default:
		return capgate.NewMemoryCache(cfg.CacheTTL), func() {}
	}
}

// ProvideGate creates the capitalization gate (for Wire).
func ProvideGate(cfg *Config, dp provider.DataProvider, cache capgate.Cache) *capgate.Gate {
	g := capgate.New(dp, cfg.MarketCapThreshold, cache)
	slog.Info("market cap gate", "threshold", g.Threshold())
	return g
}

// ProvideFetcher wires both fetch paths to the provider (for Wire).
func ProvideFetcher(gate *capgate.Gate, dp provider.DataProvider) *fetch.Fetcher {
	return fetch.New(gate, dp, dp)
}

// ProvideTableSaver creates TableSaver from config (for Wire).
// Returns error if SaveFormat is not supported.
func ProvideTableSaver(cfg *Config) (saver.TableSaver, error) {
	ts := saver.NewTableSaver(cfg.SaveFormat)
	if ts == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: csv, parquet, json)", cfg.SaveFormat)
	}
	return ts, nil
}

// ProvideBatchWriter creates the artifact writer (for Wire).
func ProvideBatchWriter(cfg *Config, ts saver.TableSaver) *saver.BatchWriter {
	return saver.NewBatchWriter(cfg.SaveBaseDir(), ts)
}

// ProvidePacer creates the per-symbol / per-batch pacing policy (for Wire).
func ProvidePacer(cfg *Config) ratelimit.Pacer {
	return ratelimit.FixedPacer{SymbolPause: cfg.SymbolPause, BatchPause: cfg.BatchPause}
}

// ProvideOrchestrator creates the batch loop (for Wire).
func ProvideOrchestrator(cfg *Config, f crawl.Fetcher, w crawl.Writer, store *manifest.Store, p ratelimit.Pacer, ts saver.TableSaver) (*crawl.Orchestrator, error) {
	from, to, err := cfg.DateRange()
	if err != nil {
		return nil, err
	}
	return crawl.NewOrchestrator(f, w, store, p, crawl.Options{
		BatchSize:         cfg.BatchSize,
		StartBatchID:      cfg.StartBatchID,
		From:              from,
		To:                to,
		SkipCompleted:     cfg.SkipCompleted,
		Format:            ts.Extension(),
		ReportDir:         cfg.SaveBaseDir(),
		HeartbeatInterval: 30 * time.Second,
	}), nil
}

// ProvideArtifactSource picks manifest or directory discovery (for Wire).
func ProvideArtifactSource(cfg *Config, store *manifest.Store, ts saver.TableSaver) consolidate.ArtifactSource {
	if cfg.ArtifactSource == "dir" {
		return consolidate.DirSource{Dir: cfg.SaveBaseDir(), Ext: ts.Extension()}
	}
	return consolidate.ManifestSource{Manifest: store, Ext: ts.Extension(), Dir: cfg.SaveBaseDir()}
}

// ProvideConsolidator creates the consolidator (for Wire).
func ProvideConsolidator(src consolidate.ArtifactSource, ts saver.TableSaver, w consolidate.Writer) *consolidate.Consolidator {
	return consolidate.New(src, ts, w)
}

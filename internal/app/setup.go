package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/elvin-stowell/csds-312-final-project/internal/provider"
	"github.com/elvin-stowell/csds-312-final-project/internal/provider/polygon"
)

// CreateProvider creates the DataProvider from config (currently Polygon only).
// checkpoint may be nil.
func CreateProvider(cfg *Config, checkpoint polygon.Checkpoint) (*provider.PolygonProvider, error) {
	switch strings.ToLower(cfg.DataProvider) {
	case "polygon":
		p, err := provider.NewPolygonProvider(clientOptions(cfg), checkpoint)
		if err != nil {
			return nil, err
		}
		p.TickersFile = cfg.TickersFile
		slog.Info("wire", "provider", p.GetName(), "base_url", cfg.BaseURL,
			"requests_per_minute", cfg.RequestsPerMinute, "max_retries", cfg.MaxRetries)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported data provider: %s. Options: polygon", cfg.DataProvider)
	}
}

func clientOptions(cfg *Config) polygon.Options {
	return polygon.Options{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxRetries:        cfg.MaxRetries,
		RetryBaseDelay:    cfg.RetryBaseDelay,
		RetryMaxDelay:     cfg.RetryMaxDelay,
		Timeout:           cfg.RequestTimeout,
		FinancialsLimit:   cfg.FinancialsLimit,
	}
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

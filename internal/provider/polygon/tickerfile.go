package polygon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadTickersFromFile reads a list of tickers from a file.
// Supported formats:
//   - .txt  : one ticker per line, '#' lines are treated as comments
//   - .json : JSON array of strings
//
// Order is preserved; blanks and repeats are dropped.
func LoadTickersFromFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ticker file %s: %w", path, err)
	}

	var tickers []string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &tickers); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case ".txt", "":
		tickers = parseTickersFromText(string(content))
	default:
		return nil, fmt.Errorf("unsupported ticker file extension %q (use .txt or .json)", filepath.Ext(path))
	}

	seen := make(map[string]bool)
	var uniqueTickers []string
	for _, t := range tickers {
		t = strings.TrimSpace(strings.ToUpper(t))
		if t != "" && !seen[t] {
			seen[t] = true
			uniqueTickers = append(uniqueTickers, t)
		}
	}

	slog.Info("loaded tickers from file", "count", len(uniqueTickers), "path", path)
	return uniqueTickers, nil
}

// parseTickersFromText parses a plain text representation of tickers
// where each non-empty, non-comment line represents a ticker.
func parseTickersFromText(s string) []string {
	lines := strings.Split(s, "\n")
	var tickers []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			tickers = append(tickers, line)
		}
	}
	return tickers
}

// SaveTickersToFile writes tickers as an indented JSON array.
func SaveTickersToFile(tickers []string, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(tickers, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tickers: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package crawl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SkipEntry is one symbol/table pair that contributed no rows, and why.
// Class is the symbol-independent category used for summaries.
type SkipEntry struct {
	Ticker string `json:"ticker"`
	Batch  int    `json:"batch"`
	Kind   string `json:"kind"`
	Class  string `json:"class"`
	Reason string `json:"reason"`
}

func writeRunReport(dir string, successList []string, skipped []SkipEntry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if len(successList) > 0 {
		p := filepath.Join(dir, ".lastrun.success.json")
		data, err := json.MarshalIndent(successList, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote success", "path", p, "tickers", len(successList))
	}
	if len(skipped) > 0 {
		p := filepath.Join(dir, ".lastrun.failed.json")
		data, err := json.MarshalIndent(skipped, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote skipped", "path", p, "count", len(skipped))
	}
	return nil
}

// joinSkipReasons condenses skip entries into one log line.
func joinSkipReasons(skipped []SkipEntry) string {
	if len(skipped) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range skipped {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Ticker)
		b.WriteString(" ")
		b.WriteString(f.Kind)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(skipped) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(skipped)-5))
			break
		}
	}
	return b.String()
}

// reasonCounts groups skip entries by class.
func reasonCounts(skipped []SkipEntry) map[string]int {
	m := make(map[string]int)
	for _, s := range skipped {
		m[s.Class]++
	}
	return m
}

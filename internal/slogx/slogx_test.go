package slogx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("batch done", "batch", 3)
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("json handler output not JSON: %s", buf.String())
	}
	if m["msg"] != "batch done" || m["batch"] != float64(3) {
		t.Errorf("json record = %v", m)
	}

	buf.Reset()
	l := New(&buf, "warn", "text")
	l.Info("hidden")
	l.Warn("shown", "ticker", "AAPL")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "ticker=AAPL") {
		t.Errorf("text output = %q", out)
	}
}

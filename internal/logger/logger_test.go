package logger

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
		"INFO":    slog.LevelInfo,
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

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("payment created", "reference_id", "ORD-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["reference_id"] != "ORD-1" {
		t.Fatalf("missing attr: %v", rec)
	}
}

func TestNew_ConsoleNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "console").Debug("polled", "status", "PAID")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("unexpected ANSI codes in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "status=PAID") {
		t.Fatalf("missing attr in %q", buf.String())
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "json", &buf)
	log.Debug("hidden")
	log.Info("arrival", "room", "Kitchen")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["room"] != "Kitchen" {
		t.Errorf("room = %v", rec["room"])
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("debug", "text", &buf).Debug("tick", "n", 3)
	if !strings.Contains(buf.String(), "msg=tick") || !strings.Contains(buf.String(), "n=3") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNewLogger_AutoNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("info", "auto", &buf).Info("x")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("auto on a buffer should be JSON, got %q", buf.String())
	}
}

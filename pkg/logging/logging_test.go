package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Level = level
	opts.Output = &buf
	l, err := NewLogger(opts)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewLoggerOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"text", Options{Level: LevelDebug, Format: FormatText}, false},
		{"bad level", Options{Level: "trace"}, true},
		{"bad format", Options{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = &bytes.Buffer{}
			_, err := NewLogger(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo)

	l.Debug("hidden")
	l.Info("shown", "core", 1)
	l.Warn("careful")
	l.Error(errors.New("boom"), "failed")

	lines := decodeLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "shown" || lines[0]["core"] != float64(1) {
		t.Errorf("unexpected info line: %v", lines[0])
	}
	if lines[1]["level"] != "warn" {
		t.Errorf("expected warn level, got %v", lines[1]["level"])
	}
	if lines[2]["error"] != "boom" {
		t.Errorf("expected error field, got %v", lines[2])
	}

	debug, buf := newBufferLogger(t, LevelDebug)
	debug.Debug("now shown")
	if len(decodeLines(t, buf)) != 1 {
		t.Errorf("expected debug line at debug level")
	}
}

func TestLoggerForCore(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo)

	LoggerForStream(LoggerForCore(l, 3, 1), "single_burst").Info("core done")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["logger"] != "core" || line["core"] != float64(3) || line["socket"] != float64(1) || line["stream"] != "single_burst" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestContextHelpers(t *testing.T) {
	l, buf := newBufferLogger(t, LevelInfo)

	ctx := IntoContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected logger from context")
	}
	FromContext(IntoContext(ctx, l.WithName("sub"))).Info("named")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["logger"] != "sub" {
		t.Errorf("expected named logger, got %v", lines[0])
	}

	if FromContext(nil) == nil {
		t.Error("expected global logger for nil context")
	}
	if FromContext(context.Background()) != GetGlobalLogger() {
		t.Error("expected global logger for empty context")
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("dropped")
	l.WithName("x").WithValues("k", "v").Warn("dropped")
	if err := l.Sync(); err != nil {
		t.Errorf("nop sync failed: %v", err)
	}
}

func TestInitGlobalLogger(t *testing.T) {
	var first, second bytes.Buffer

	opts := DefaultOptions()
	opts.Output = &first
	if _, err := InitGlobalLogger(opts); err != nil {
		t.Fatalf("InitGlobalLogger failed: %v", err)
	}
	LoggerForCommand("split").Info("first")

	opts.Output = &second
	l, err := InitGlobalLogger(opts)
	if err != nil {
		t.Fatalf("InitGlobalLogger failed: %v", err)
	}
	if L() != l {
		t.Error("expected the last logger to be global")
	}
	LoggerForCommand("run").Info("second")

	if _, err := InitGlobalLogger(Options{Level: "trace"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if L() != l {
		t.Error("failed init must keep the previous logger")
	}

	lines := decodeLines(t, &first)
	if len(lines) != 1 || lines[0]["logger"] != "split" || lines[0]["command"] != "split" {
		t.Errorf("unexpected first logger output: %v", lines)
	}
	lines = decodeLines(t, &second)
	if len(lines) != 1 || lines[0]["command"] != "run" {
		t.Errorf("unexpected second logger output: %v", lines)
	}
}

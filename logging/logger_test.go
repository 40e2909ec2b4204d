package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	return m
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Service: "svr", Module: "train", Level: "info"}, &buf)
	l.With("run_id", "abc").Info("converged", "iterations", 20)

	m := decode(t, strings.TrimSpace(buf.String()))
	if m["service"] != "svr" || m["module"] != "train" || m["run_id"] != "abc" || m["msg"] != "converged" {
		t.Errorf("fields = %v", m)
	}
	if _, ok := m["timestamp"]; !ok {
		t.Error("time key should be renamed to timestamp")
	}
}

func TestTraceContextInjected(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info"}, &buf)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.InfoContext(ctx, "kernel cache loaded")

	m := decode(t, strings.TrimSpace(buf.String()))
	if m["trace_id"] != sc.TraceID().String() || m["span_id"] != sc.SpanID().String() {
		t.Errorf("trace fields = %v %v", m["trace_id"], m["span_id"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "error"}, &buf)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %s", buf.String())
	}
	SetLevel("debug")
	defer SetLevel("info")
	l.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("SetLevel did not lower the level")
	}
}

func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info"}, &buf)
	l.LogDuration(context.Background(), "training", "data", "sine.csv")()
	m := decode(t, strings.TrimSpace(buf.String()))
	if m["msg"] != "training finished" || m["data"] != "sine.csv" {
		t.Errorf("fields = %v", m)
	}
	if _, ok := m["duration"]; !ok {
		t.Error("duration missing")
	}
}

func TestMultiHandlerRespectsTargetLevels(t *testing.T) {
	var file, console bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	l := slog.New(h)
	l.Debug("smo progress", "iteration", 10)
	l.Warn("iteration limit reached")

	if !strings.Contains(file.String(), "smo progress") || !strings.Contains(file.String(), "iteration limit") {
		t.Errorf("file target = %s", file.String())
	}
	if strings.Contains(console.String(), "smo progress") {
		t.Errorf("debug record reached the warn-level console: %s", console.String())
	}
	if !strings.Contains(console.String(), "iteration limit") {
		t.Errorf("console target = %s", console.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("handler should be enabled when any target accepts the level")
	}
}

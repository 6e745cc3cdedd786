package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.With(String(FieldRunID, "r1")).Info("render done", Int("produced", 4), Error(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "render done" || rec["run_id"] != "r1" || rec["produced"] != float64(4) || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNew_AutoOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "auto", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("x")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	off := false
	logger, err := New(Options{Level: "debug", Format: "console", Output: &buf, Color: &off})
	if err != nil {
		t.Fatal(err)
	}
	NewComponentLogger(logger, "render").
		WithGroup("job").
		With(String("name", "short_01")).
		Warn("render failed", String("path", "/tmp/a b.mp4"))

	got := buf.String()
	for _, want := range []string{"WARN ", "[render]", "render failed", "job.name=short_01", `job.path="/tmp/a b.mp4"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "job.job.") {
		t.Fatalf("group prefix applied twice: %q", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("unexpected escape codes: %q", got)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := New(Options{Format: "xml", Output: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestNewComponentLogger_NilIsNop(t *testing.T) {
	l := NewComponentLogger(nil, "x")
	l.Info("dropped")
}

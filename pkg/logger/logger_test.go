package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "event stored", String("kind", "search"), Int("size", 3))

	out := buf.String()
	if !strings.Contains(out, "event stored") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "kind=search") {
		t.Errorf("expected kind field in output, got %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("expected caller source in output, got %q", out)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat("JSON")); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Warn(context.Background(), "append failed", Error(errors.New("disk full")), Bool("fallback", true))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "append failed" {
		t.Errorf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "WARN" {
		t.Errorf("unexpected level: %v", record["level"])
	}
	if record["fallback"] != true {
		t.Errorf("unexpected fallback field: %v", record["fallback"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	ctx := context.Background()
	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug record after level change, got %q", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("level %q: unexpected error %v", level, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("repository")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	namedLogger.Info(context.Background(), "test message")
	if !strings.Contains(buf.String(), "component=repository") {
		t.Errorf("expected component attribute, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop().Named("quiet")
	l.Info(context.Background(), "discarded", String("k", "v"))
	l.Error(context.Background(), "discarded", Error(errors.New("boom")))
}

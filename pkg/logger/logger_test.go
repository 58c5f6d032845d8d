package logger

import (
	"bytes"
	"context"
	"encoding/json"
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

	if err := Init(WithFormat("yaml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "graded", String("username", "asmith"), Float64("score", 80))

	out := buf.String()
	if !strings.Contains(out, "msg=graded") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "username=asmith") {
		t.Errorf("missing field in %q", out)
	}
}

func TestLoggerJSONNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("bulk").Named("grader").Warn(context.Background(), "compile failed", Int("exit_code", 1))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["logger"] != "bulk.grader" {
		t.Errorf("logger = %v, want bulk.grader", rec["logger"])
	}
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().Debug(ctx, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug record missing after SetLevelString(debug)")
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerSource(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithSource(true)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	Get().Error(context.Background(), "boom")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("source should point at the calling test file, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop().Named("x")
	l.Error(context.Background(), "ignored")
}

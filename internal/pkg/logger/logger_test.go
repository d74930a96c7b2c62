package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestZapLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zapcore.DebugLevel)

	log.Info("calling backend", map[string]interface{}{"model": "gpt", "attempt": 2})
	log.Error("send failed", errors.New("boom"), nil)

	out := buf.String()
	if !strings.Contains(out, "calling backend") {
		t.Fatalf("missing message in %q", out)
	}
	if strings.Index(out, "attempt") > strings.Index(out, "model") {
		t.Fatalf("fields not sorted: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("missing error in %q", out)
	}
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zapcore.WarnLevel)
	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	log.Warn("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn entry, got %q", buf.String())
	}
}

func TestNewWithoutVerboseIsSilent(t *testing.T) {
	log := New(false)
	log.Error("dropped", errors.New("x"), map[string]interface{}{"k": "v"})
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
}

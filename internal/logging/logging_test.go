package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pulse.log")

	log, err := New("info", path)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.Info("search started")
	log.Debug("dropped at info level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"search started"`) {
		t.Errorf("log missing info entry: %s", out)
	}
	if strings.Contains(out, "dropped at info level") {
		t.Errorf("debug entry should be filtered: %s", out)
	}
}

func TestNewEmptyPathIsNop(t *testing.T) {
	log, err := New("debug", "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("empty path should give a disabled logger")
	}
}
